package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/internal/staff/models"
	"github.com/c14220110/hospital-backend/internal/staff/services"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type StaffController struct {
	Service *services.StaffService
}

func NewStaffController(service *services.StaffService) *StaffController {
	return &StaffController{Service: service}
}

// LoginHandler handles POST /api/staff/login and issues the JWT used by
// every protected endpoint.
func (sc *StaffController) LoginHandler(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload: " + err.Error(),
			"data":    nil,
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "username and password are required",
			"data":    nil,
		})
	}

	staff, err := sc.Service.AuthenticateStaff(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"status":  http.StatusUnauthorized,
				"message": "Invalid username or password",
				"data":    nil,
			})
		}
		log.Error().Err(err).Str("username", req.Username).Msg("staff login failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Login failed: " + err.Error(),
			"data":    nil,
		})
	}

	token, err := utils.GenerateJWTToken(int(staff.ID), staff.Role, staff.Username, time.Now().Add(8*time.Hour))
	if err != nil {
		log.Error().Err(err).Msg("failed to generate token")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Failed to generate token: " + err.Error(),
			"data":    nil,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Login successful",
		"data": echo.Map{
			"token": token,
			"staff": echo.Map{
				"id":       staff.ID,
				"username": staff.Username,
				"name":     staff.Name,
				"role":     staff.Role,
			},
		},
	})
}
