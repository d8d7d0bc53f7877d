package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/inpatient/controllers"
)

// RegisterRoomRoutes wires the room inventory and occupancy endpoints
// behind the JWT middleware.
func RegisterRoomRoutes(e *echo.Echo, rc *controllers.RoomController) {
	group := e.Group("/api/rooms", middlewares.JWTMiddleware)
	group.GET("", rc.ListRoomsHandler)
	group.GET("/types", rc.ListRoomTypesHandler)
	group.GET("/:id", rc.GetRoomHandler)
	group.POST("/create", rc.CreateRoomHandler)
	group.PUT("/:id/update", rc.UpdateRoomHandler)
	group.DELETE("/:id/delete", rc.DeleteRoomHandler)
	group.POST("/assign", rc.AssignRoomHandler)
	group.POST("/discharge", rc.DischargeRoomHandler)
}
