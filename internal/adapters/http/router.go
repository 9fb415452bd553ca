package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dkeye/Gambit/internal/adapters/signal"
	"github.com/dkeye/Gambit/internal/app/orch"
	"github.com/dkeye/Gambit/internal/auth"
	"github.com/dkeye/Gambit/internal/config"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/dkeye/Gambit/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Orch   *orch.Orchestrator
	Signal *signal.SignalWSController
	Auth   *auth.JWTManager
	Games  store.Store
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(RequestLogger())
	}
	r.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("GambitSessions", sessionStore))
	r.Use(AuthMiddleware(d.Auth))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": d.Orch.Rooms.Len()})
	})

	api := r.Group("/api")
	api.GET("/modes", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.Modes())
	})
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Orch.List(c.Request.Context()))
	})
	api.GET("/rooms/:id", func(c *gin.Context) {
		snap, err := d.Orch.Snapshot(c.Request.Context(), domain.RoomID(c.Param("id")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})
	api.POST("/rooms", RequireAuth(), func(c *gin.Context) {
		createRoom(c, d.Orch)
	})
	if d.Games != nil {
		api.GET("/games/:id", func(c *gin.Context) {
			rec, err := d.Games.Get(c.Request.Context(), domain.RoomID(c.Param("id")))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, rec)
		})
		api.GET("/users/:id/games", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.Query("limit"))
			recs, err := d.Games.ListByUser(c.Request.Context(), domain.UserID(c.Param("id")), limit)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, recs)
		})
		api.GET("/users/:id/stats", func(c *gin.Context) {
			stats, err := d.Games.UserStats(c.Request.Context(), domain.UserID(c.Param("id")))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, stats)
		})
	}

	api.GET("/ws", func(c *gin.Context) {
		var user *domain.User
		if u, ok := UserFrom(c); ok {
			user = &u
		}
		log.Debug().Str("module", "adapters.http").Bool("authenticated", user != nil).Msg("ws endpoint hit")
		d.Signal.HandleSignal(ctx, c, user)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

type createRoomRequest struct {
	GameRules *domain.Rules `json:"gameRules"`
	Mode      string        `json:"mode"`
}

func createRoom(c *gin.Context, o *orch.Orchestrator) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", core.ErrBadPayload, err))
		return
	}
	rules, err := domain.ResolveRules(req.Mode, req.GameRules)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", core.ErrBadPayload, err))
		return
	}
	user, _ := UserFrom(c)
	roomID, err := o.Create(user, rules)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"roomId": roomID})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrBadPayload):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrRoomNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrRoomClosed):
		status = http.StatusServiceUnavailable
	}
	name := core.ErrorName(err)
	if errors.Is(err, store.ErrNotFound) {
		name = core.NameRoomNotFound
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"name": name, "message": err.Error()})
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().Str("module", "adapters.http").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
