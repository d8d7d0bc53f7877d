package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/finance/controllers"
)

// RegisterFinancialRoutes wires the billing endpoints behind the JWT
// middleware.
func RegisterFinancialRoutes(e *echo.Echo, fc *controllers.FinancialController) {
	group := e.Group("/api/finance/billing", middlewares.JWTMiddleware)
	group.POST("/items", fc.AddBillingItemHandler)
	group.GET("/recent", fc.ListAccountsHandler)
	group.GET("/detail", fc.AccountDetailHandler)
}
