package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"pricewatch/internal/auth"
)

// userIDKey is the echo context key holding the authenticated user's ID.
const userIDKey = "user_id"

// UserID returns the authenticated user ID set by RequireAuth, or "".
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// RequireAuth returns Echo middleware that validates the Bearer access token
// and stores the authenticated user ID on the context.
func RequireAuth(tokens *auth.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.VerifyAccessToken(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(userIDKey, claims.Subject)
			return next(c)
		}
	}
}
