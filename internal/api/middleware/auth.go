// Package middleware provides HTTP middleware for the bill tracker API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/billtrackerhq/billtracker-backend/internal/auth"
	"github.com/billtrackerhq/billtracker-backend/internal/logger"
	"github.com/labstack/echo/v4"
)

// ContextKeyUserID is the echo context key holding the authenticated user's ID
const ContextKeyUserID = "user_id"

// JWTAuth validates the bearer token from the Authorization header and
// stores the authenticated user ID in the request context. Failed
// attempts go to the security log.
func JWTAuth(jwtManager *auth.JWTManager, security *logger.SecurityLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if security != nil {
					security.AuthFailure(c.RealIP(), c.Path(), "missing authorization header")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "missing authorization header",
					"code":  "UNAUTHORIZED",
				})
			}

			// Extract token from "Bearer <token>" format
			token := strings.TrimPrefix(authHeader, "Bearer ")
			token = strings.TrimSpace(token)

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				if security != nil {
					security.AuthFailure(c.RealIP(), c.Path(), "invalid or expired token")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired token",
					"code":  "UNAUTHORIZED",
				})
			}

			c.Set(ContextKeyUserID, claims.UserID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user ID from the request context,
// or 0 when the request is unauthenticated.
func UserID(c echo.Context) uint {
	id, _ := c.Get(ContextKeyUserID).(uint)
	return id
}
