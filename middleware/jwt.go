package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/nflodds/auth"
)

// Context keys set by JWT for downstream handlers.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// TokenDecoder validates a raw bearer token.
type TokenDecoder interface {
	Decode(token string) (*auth.Claims, error)
}

// JWT returns an Echo middleware that requires "Authorization: Bearer <token>"
// and stores the caller's id and email on the context.
func JWT(tokens TokenDecoder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			claims, err := tokens.Decode(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			id, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(UserIDKey, id)
			c.Set(EmailKey, claims.Email)
			return next(c)
		}
	}
}

// UserID returns the id JWT stored, if any.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(UserIDKey).(int64)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
