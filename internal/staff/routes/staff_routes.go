package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/staff/controllers"
)

// RegisterStaffRoutes wires the login endpoint. Login is not protected by
// the JWT middleware.
func RegisterStaffRoutes(e *echo.Echo, sc *controllers.StaffController) {
	e.POST("/api/staff/login", sc.LoginHandler)
}
