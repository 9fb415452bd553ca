package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Gambit/internal/auth"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	userKey         = "gambit.user"
	sessionTokenKey = "token"
)

// AuthMiddleware resolves the caller from a bearer header, a token query
// parameter or the session cookie, in that order. A verified token is
// remembered in the session so browsers can open the socket without it.
func AuthMiddleware(j *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		fromSession := false
		if token == "" {
			if v, ok := sess.Get(sessionTokenKey).(string); ok {
				token, fromSession = v, true
			}
		}
		if token == "" || j == nil {
			c.Next()
			return
		}

		user, err := j.Verify(token)
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Msg("token rejected")
			if fromSession {
				sess.Delete(sessionTokenKey)
				_ = sess.Save()
			}
			c.Next()
			return
		}
		c.Set(userKey, user)
		if !fromSession {
			sess.Set(sessionTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests the middleware could not attach a user to.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"name": core.NameAuth, "message": core.ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

func UserFrom(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}

func bearerToken(h string) string {
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
