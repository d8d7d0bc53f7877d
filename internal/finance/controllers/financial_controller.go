package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/internal/common/middlewares"
	"github.com/c14220110/hospital-backend/internal/finance/models"
	"github.com/c14220110/hospital-backend/internal/finance/services"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

type FinancialController struct {
	Service *services.FinancialService
}

func NewFinancialController(service *services.FinancialService) *FinancialController {
	return &FinancialController{Service: service}
}

// AddBillingItemHandler handles POST /api/finance/billing/items. When no
// billing_id is given the account is resolved or created from patient_id
// and admission_id.
func (fc *FinancialController) AddBillingItemHandler(c echo.Context) error {
	var req models.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid request payload: " + err.Error(),
			"data":    nil,
		})
	}
	if req.SourceType == "" || req.SourceID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "source_type and source_id are required",
			"data":    nil,
		})
	}
	if req.BillingID <= 0 && req.PatientID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "billing_id or patient_id is required",
			"data":    nil,
		})
	}

	claims, ok := c.Get(string(middlewares.ContextKeyClaims)).(*utils.Claims)
	if !ok || claims == nil || claims.IDStaff <= 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"status":  http.StatusUnauthorized,
			"message": "Invalid or missing token claims",
			"data":    nil,
		})
	}
	staffID := int64(claims.IDStaff)

	if req.BillingID <= 0 {
		account, err := fc.Service.GetOrCreateAccount(req.PatientID, req.AdmissionID, staffID)
		if err != nil {
			log.Error().Err(err).Int64("patient_id", req.PatientID).Msg("failed to resolve billing account")
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  http.StatusInternalServerError,
				"message": "Failed to resolve billing account: " + err.Error(),
				"data":    nil,
			})
		}
		req.BillingID = account.ID
	}

	result, err := fc.Service.AddItem(req, staffID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"status":  http.StatusNotFound,
				"message": "Billing account not found",
				"data":    nil,
			})
		case errors.Is(err, services.ErrSourceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{
				"status":  http.StatusNotFound,
				"message": "Billed source entity not found",
				"data":    nil,
			})
		case errors.Is(err, services.ErrInvalidPrice):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"status":  http.StatusBadRequest,
				"message": "unit_price must be positive",
				"data":    nil,
			})
		case errors.Is(err, services.ErrUnknownSourceType):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"status":  http.StatusBadRequest,
				"message": "Unknown source_type",
				"data":    nil,
			})
		default:
			log.Error().Err(err).Int64("billing_id", req.BillingID).Msg("failed to add billing item")
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  http.StatusInternalServerError,
				"message": "Failed to add billing item: " + err.Error(),
				"data":    nil,
			})
		}
	}

	message := "Billing item added successfully"
	if result.Existing {
		message = "Billing item already exists"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": message,
		"data":    result,
	})
}

// ListAccountsHandler handles GET /api/finance/billing/recent with an
// optional ?status= filter.
func (fc *FinancialController) ListAccountsHandler(c echo.Context) error {
	var filterStatus *string
	if statusParam := c.QueryParam("status"); statusParam != "" {
		filterStatus = &statusParam
	}

	data, err := fc.Service.GetRecentAccounts(filterStatus)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve billing accounts: " + err.Error(),
			"data":    nil,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Billing accounts retrieved successfully",
		"data":    data,
	})
}

// AccountDetailHandler handles GET /api/finance/billing/detail?id_billing=.
func (fc *FinancialController) AccountDetailHandler(c echo.Context) error {
	idParam := c.QueryParam("id_billing")
	if idParam == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "id_billing is required",
			"data":    nil,
		})
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  http.StatusBadRequest,
			"message": "Invalid id_billing",
			"data":    nil,
		})
	}

	detail, err := fc.Service.GetAccountDetail(id)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"status":  http.StatusNotFound,
				"message": "Billing account not found",
				"data":    nil,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":  http.StatusInternalServerError,
			"message": "Failed to retrieve billing detail: " + err.Error(),
			"data":    nil,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": "Billing detail retrieved successfully",
		"data":    detail,
	})
}
