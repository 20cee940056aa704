package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tamio/tamio-backend/internal/domain"
)

// UserIDKey is the echo context key the resolved user id is stored under.
const UserIDKey = "userID"

// UserHeader is the request header identifying the caller. Authentication
// itself happens upstream at the gateway; this service trusts the header and
// only verifies the user exists.
const UserHeader = "X-User-ID"

// UserMiddleware resolves the calling user for every request.
type UserMiddleware struct {
	users domain.UserRepository
}

// NewUserMiddleware creates a UserMiddleware.
func NewUserMiddleware(users domain.UserRepository) *UserMiddleware {
	return &UserMiddleware{users: users}
}

// Resolve reads the user header, verifies the user, and stores the id in the
// request context.
func (m *UserMiddleware) Resolve() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get(UserHeader)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+UserHeader+" header")
			}
			if _, err := m.users.GetByID(userID); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

// GetUserID returns the resolved user id from the echo context.
func GetUserID(c echo.Context) string {
	id, _ := c.Get(UserIDKey).(string)
	return id
}
