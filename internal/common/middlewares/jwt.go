package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/pkg/utils"
)

type contextKey string

const (
	// ContextKeyClaims is the key controllers use to read the staff claims.
	ContextKeyClaims contextKey = "claims"
)

// JWTMiddleware validates the Bearer token and stores the staff claims in
// the echo context under ContextKeyClaims.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"status":  http.StatusUnauthorized,
				"message": "Authorization header missing",
				"data":    nil,
			})
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"status":  http.StatusUnauthorized,
				"message": "Invalid authorization header",
				"data":    nil,
			})
		}
		claims, err := utils.ValidateJWTToken(parts[1])
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"status":  http.StatusUnauthorized,
				"message": "Invalid token: " + err.Error(),
				"data":    nil,
			})
		}

		c.Set(string(ContextKeyClaims), claims)
		return next(c)
	}
}
