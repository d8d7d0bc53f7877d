package controllers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	financemodels "github.com/c14220110/hospital-backend/internal/finance/models"
	"github.com/c14220110/hospital-backend/internal/inpatient/models"
	"github.com/c14220110/hospital-backend/internal/inpatient/services"
	"github.com/c14220110/hospital-backend/pkg/utils"
	"github.com/c14220110/hospital-backend/ws"
)

// BillingRecorder is the slice of the financial service the discharge flow
// needs. Billing failures during discharge are reported, never fatal.
type BillingRecorder interface {
	RecordRoomCharge(patientID int64, admissionID *int64, assignmentID int64, assignmentType string, dailyRate *float64, staffID int64) (*financemodels.ItemResult, error)
}

type RoomController struct {
	Rooms     *services.RoomService
	Occupancy *services.OccupancyService
	Billing   BillingRecorder
}

func NewRoomController(rooms *services.RoomService, occupancy *services.OccupancyService, billing BillingRecorder) *RoomController {
	return &RoomController{Rooms: rooms, Occupancy: occupancy, Billing: billing}
}

// AssignRoomHandler handles POST /api/rooms/assign.
func (rc *RoomController) AssignRoomHandler(c echo.Context) error {
	var req models.AssignRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Invalid request payload: " + err.Error(),
		})
	}
	if req.PatientID <= 0 || req.DepartmentID <= 0 || req.FloorNumber == "" || req.RoomNumber == "" || req.BedNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "patient_id, department_id, floor_number, room_number and bed_number are required",
		})
	}

	staffID, ok := staffIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"message": "Invalid or missing token claims",
		})
	}

	assignedAt := parseAssignedAt(req.AssignedAt)
	result, err := rc.Occupancy.AssignRoom(req, assignedAt, staffID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"message": "Room not found for the given floor and room number",
			})
		case errors.Is(err, services.ErrRoomOccupied):
			return c.JSON(http.StatusConflict, echo.Map{
				"success": false,
				"message": "Room is already occupied by another patient",
			})
		default:
			log.Error().Err(err).Int64("patient_id", req.PatientID).Msg("room assignment failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"message": "Failed to assign room: " + err.Error(),
			})
		}
	}

	ws.BroadcastRoomStatus(result.RoomID, models.RoomStatusOccupied, req.PatientID)
	if result.TransferredFromRoom != nil {
		ws.BroadcastRoomStatus(*result.TransferredFromRoom, models.RoomStatusAvailable, nil)
	}

	csrf := utils.NewCSRFPair()
	return c.JSON(http.StatusOK, echo.Map{
		"success":                  true,
		"message":                  "Room assigned successfully",
		"admission_id":             result.AdmissionID,
		"room_id":                  result.RoomID,
		"transferred_from_room_id": result.TransferredFromRoom,
		"csrf_name":                csrf.Name,
		"csrf_token":               csrf.Token,
	})
}

// DischargeRoomHandler handles POST /api/rooms/discharge. The billing
// append after the discharge is best effort: its failure is reported in
// billing_message but never fails the discharge itself.
func (rc *RoomController) DischargeRoomHandler(c echo.Context) error {
	var req struct {
		RoomID int64 `json:"room_id" form:"room_id"`
	}
	if err := c.Bind(&req); err != nil || req.RoomID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "room_id is required",
		})
	}

	staffID, ok := staffIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"success": false,
			"message": "Invalid or missing token claims",
		})
	}

	result, err := rc.Occupancy.DischargeRoom(req.RoomID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"message": "Room not found",
			})
		case errors.Is(err, services.ErrNoActiveAssignment):
			return c.JSON(http.StatusNotFound, echo.Map{
				"success": false,
				"message": "No active assignment for this room",
			})
		default:
			log.Error().Err(err).Int64("room_id", req.RoomID).Msg("discharge failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false,
				"message": "Failed to discharge room: " + err.Error(),
			})
		}
	}

	billingMessage := "Room charge recorded"
	if item, billErr := rc.Billing.RecordRoomCharge(result.PatientID, result.AdmissionID,
		result.AssignmentID, result.AssignmentType, result.DailyRate, staffID); billErr != nil {
		log.Warn().Err(billErr).Int64("room_id", req.RoomID).Msg("billing append failed after discharge")
		billingMessage = "Billing update failed: " + billErr.Error()
	} else if item.Existing {
		billingMessage = "Room charge already billed"
	}

	ws.BroadcastRoomStatus(req.RoomID, models.RoomStatusAvailable, nil)

	csrf := utils.NewCSRFPair()
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"message":         "Room discharged successfully",
		"assignment_id":   result.AssignmentID,
		"assignment_type": result.AssignmentType,
		"patient_id":      result.PatientID,
		"admission_id":    result.AdmissionID,
		"billing_message": billingMessage,
		"csrf_name":       csrf.Name,
		"csrf_token":      csrf.Token,
	})
}

// ListRoomsHandler handles GET /api/rooms. With ?grouped=true the rooms are
// grouped by room_type_id.
func (rc *RoomController) ListRoomsHandler(c echo.Context) error {
	rooms, err := rc.Rooms.ListRooms()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve rooms: " + err.Error(),
			"data":    nil,
		})
	}

	var data interface{} = rooms
	if c.QueryParam("grouped") == "true" {
		data = services.GroupRoomsByType(rooms)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Rooms retrieved successfully",
		"data":    data,
	})
}

// ListRoomTypesHandler handles GET /api/rooms/types.
func (rc *RoomController) ListRoomTypesHandler(c echo.Context) error {
	types, err := rc.Rooms.ListRoomTypes()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve room types: " + err.Error(),
			"data":    nil,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Room types retrieved successfully",
		"data":    types,
	})
}

// GetRoomHandler handles GET /api/rooms/:id.
func (rc *RoomController) GetRoomHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid room id",
			"data":    nil,
		})
	}

	room, err := rc.Rooms.GetRoom(id)
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{
			"status":  http.StatusNotFound,
			"message": "Room not found",
			"data":    nil,
		})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve room: " + err.Error(),
			"data":    nil,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Room retrieved successfully",
		"data":    room,
	})
}

// CreateRoomHandler handles POST /api/rooms/create.
func (rc *RoomController) CreateRoomHandler(c echo.Context) error {
	var req models.CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload: " + err.Error(),
			"data":    nil,
		})
	}
	if req.RoomNumber == "" || req.FloorNumber == "" || req.BedCapacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "room_number, floor_number and a bed_capacity of at least 1 are required",
			"data":    nil,
		})
	}

	id, err := rc.Rooms.CreateRoom(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoomNumberTaken):
			return c.JSON(http.StatusConflict, echo.Map{
				"status":  http.StatusConflict,
				"message": "Room number already exists on this floor",
				"data":    nil,
			})
		case errors.Is(err, services.ErrTooManyBedNames):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"status":  http.StatusBadRequest,
				"message": "bed_names cannot exceed bed_capacity",
				"data":    nil,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  http.StatusInternalServerError,
				"message": "Failed to create room: " + err.Error(),
				"data":    nil,
			})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Room created successfully",
		"data":    echo.Map{"id": id},
	})
}

// UpdateRoomHandler handles PUT /api/rooms/:id/update.
func (rc *RoomController) UpdateRoomHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid room id",
			"data":    nil,
		})
	}

	var req models.CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload: " + err.Error(),
			"data":    nil,
		})
	}

	if err := rc.Rooms.UpdateRoom(id, req); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{
				"status":  http.StatusNotFound,
				"message": "Room not found",
				"data":    nil,
			})
		case errors.Is(err, services.ErrTooManyBedNames):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"status":  http.StatusBadRequest,
				"message": "bed_names cannot exceed bed_capacity",
				"data":    nil,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  http.StatusInternalServerError,
				"message": "Failed to update room: " + err.Error(),
				"data":    nil,
			})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Room updated successfully",
		"data":    nil,
	})
}

// DeleteRoomHandler handles DELETE /api/rooms/:id/delete.
func (rc *RoomController) DeleteRoomHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid room id",
			"data":    nil,
		})
	}

	if err := rc.Rooms.DeleteRoom(id); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{
				"status":  http.StatusNotFound,
				"message": "Room not found",
				"data":    nil,
			})
		case errors.Is(err, services.ErrRoomInUse):
			return c.JSON(http.StatusConflict, echo.Map{
				"status":  http.StatusConflict,
				"message": "Room is still referenced by assignments",
				"data":    nil,
			})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  http.StatusInternalServerError,
				"message": "Failed to delete room: " + err.Error(),
				"data":    nil,
			})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Room deleted successfully",
		"data":    nil,
	})
}

// staffIDFromContext reads the authenticated staff id from the JWT claims.
func staffIDFromContext(c echo.Context) (int64, bool) {
	claims, ok := c.Get(string(middlewares.ContextKeyClaims)).(*utils.Claims)
	if !ok || claims == nil || claims.IDStaff <= 0 {
		return 0, false
	}
	return int64(claims.IDStaff), true
}

// parseAssignedAt accepts the form datetime format or RFC3339 and falls
// back to now.
func parseAssignedAt(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return time.Now()
}
