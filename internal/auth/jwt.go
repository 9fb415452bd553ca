// Package auth turns bearer tokens into verified users.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

const issuer = "gambit"

// Claims carry the identity the game trusts. The token is minted by the
// account service; the game only verifies it.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	expiry time.Duration
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token for user. Used by tooling and tests.
func (j *JWTManager) Issue(user domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    string(user.ID),
		Username:  user.Username,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   string(user.ID),
		},
	}
	if j.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(j.expiry))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// Verify validates the token and returns the user it names.
func (j *JWTManager) Verify(token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrNoToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.User{}, ErrInvalidToken
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	user, err := domain.NewUser(domain.UserID(id), claims.FullName, claims.Username)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user.AvatarURL = claims.AvatarURL
	return *user, nil
}
