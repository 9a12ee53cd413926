package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are route patterns reachable without a bearer token.
var publicPaths = map[string]bool{
	"/health":                  true,
	"/health/db":               true,
	"/metrics":                 true,
	"/api/auth/register":       true,
	"/api/auth/login":          true,
	"/api/doctors":             true,
	"/api/ai/recommend-doctor": true,
}

// AuthSkipper reports whether the matched route skips authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
