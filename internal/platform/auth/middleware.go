package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	UserNameKey contextKey = "user_name"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role string
	Name string
}

type JWTConfig struct {
	Issuer  *TokenIssuer
	Skipper middleware.Skipper
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := cfg.Issuer.Parse(strings.TrimSpace(tokenStr))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			uid, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := WithPrincipal(c.Request().Context(), Principal{ID: uid, Role: claims.Role, Name: claims.Name})
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", uid.String())

			return next(c)
		}
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.ID)
	ctx = context.WithValue(ctx, UserRoleKey, p.Role)
	return context.WithValue(ctx, UserNameKey, p.Name)
}

// PrincipalFromContext returns the caller set by JWTMiddleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	uid, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok {
		return Principal{}, false
	}
	role, _ := ctx.Value(UserRoleKey).(string)
	name, _ := ctx.Value(UserNameKey).(string)
	return Principal{ID: uid, Role: role, Name: name}, true
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}
