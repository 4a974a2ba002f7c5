package serverutils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "exo_session"
	SessionLocalKey   = "session_id"
)

type sessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// SessionMiddleware reads the signed session cookie, or issues a new one, and stores
// the session id in ctx.Locals("session_id").
func SessionMiddleware(secret string, ttl time.Duration) fiber.Handler {
	key := []byte(secret)
	return func(ctx *fiber.Ctx) error {
		sessionID, err := parseSession(ctx.Cookies(SessionCookieName), key)
		if err != nil {
			sessionID = uuid.NewString()
			token, err := signSession(sessionID, key, ttl)
			if err != nil {
				return err
			}
			ctx.Cookie(&fiber.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Expires:  time.Now().Add(ttl),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		ctx.Locals(SessionLocalKey, sessionID)
		return ctx.Next()
	}
}

// SessionID returns the id set by SessionMiddleware, or "" outside of it.
func SessionID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(SessionLocalKey).(string)
	return id
}

func signSession(sessionID string, key []byte, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func parseSession(tokenStr string, key []byte) (string, error) {
	if tokenStr == "" {
		return "", errors.New("missing session")
	}
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid session")
	}
	if _, err := uuid.Parse(claims.SessionID); err != nil {
		return "", errors.New("invalid session id")
	}
	return claims.SessionID, nil
}
