package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/internal/finance/models"
	inpatientmodels "github.com/c14220110/hospital-backend/internal/inpatient/models"
)

var (
	ErrAccountNotFound   = errors.New("billing account not found")
	ErrSourceNotFound    = errors.New("billed source entity not found")
	ErrInvalidPrice      = errors.New("unit price must be positive")
	ErrUnknownSourceType = errors.New("unknown source type")
)

// sourceTables maps a source type to the table holding the billed entity.
var sourceTables = map[string]string{
	models.SourceAppointment:  "appointments",
	models.SourcePrescription: "prescriptions",
	models.SourceLabOrder:     "lab_orders",
	models.SourceRoom:         "inpatient_room_assignments",
	models.SourceRoomLegacy:   "room_assignment",
}

// FinancialService owns billing accounts and their line items.
type FinancialService struct {
	DB *sql.DB
}

func NewFinancialService(db *sql.DB) *FinancialService {
	return &FinancialService{DB: db}
}

// GetOrCreateAccount looks a billing account up by (patient, admission),
// creating an open one when absent. A nil admission matches accounts with
// no admission correlation.
func (s *FinancialService) GetOrCreateAccount(patientID int64, admissionID *int64, staffID int64) (*models.BillingAccount, error) {
	account := &models.BillingAccount{PatientID: patientID, AdmissionID: admissionID}

	err := s.DB.QueryRow(`
		SELECT id, account_number, status FROM billing_accounts
		WHERE patient_id = ? AND admission_id <=> ?
		ORDER BY created_at DESC LIMIT 1
	`, patientID, admissionValue(admissionID)).Scan(&account.ID, &account.AccountNumber, &account.Status)
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	account.AccountNumber = uuid.NewString()
	account.Status = models.AccountStatusOpen
	account.CreatedBy = staffID

	res, err := s.DB.Exec(`
		INSERT INTO billing_accounts (account_number, patient_id, admission_id, created_by, status)
		VALUES (?, ?, ?, ?, 'open')
	`, account.AccountNumber, patientID, admissionValue(admissionID), staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to create billing account: %v", err)
	}
	account.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}

	log.Info().Int64("patient_id", patientID).Int64("billing_id", account.ID).Msg("billing account created")
	return account, nil
}

// AddItem idempotently appends a line item for a clinical event. A
// duplicate (billing_id, source_type, source_id) whose source entity still
// exists is a success no-op returning the existing item id; a duplicate
// whose source is gone is treated as orphaned and a fresh row is allowed.
func (s *FinancialService) AddItem(req models.AddItemRequest, staffID int64) (*models.ItemResult, error) {
	table, ok := sourceTables[req.SourceType]
	if !ok {
		return nil, ErrUnknownSourceType
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}

	var accountPatient int64
	err = tx.QueryRow("SELECT patient_id FROM billing_accounts WHERE id = ?", req.BillingID).Scan(&accountPatient)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, ErrAccountNotFound
	} else if err != nil {
		tx.Rollback()
		return nil, err
	}

	sourceExists, err := s.sourceExists(tx, table, req.SourceID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Duplicate detection is query-then-insert; there is no DB constraint.
	var existingID int64
	err = tx.QueryRow(`
		SELECT id FROM billing_items
		WHERE billing_id = ? AND source_type = ? AND source_id = ?
		ORDER BY id DESC LIMIT 1
	`, req.BillingID, req.SourceType, req.SourceID).Scan(&existingID)
	switch {
	case err == nil && sourceExists:
		tx.Rollback()
		log.Debug().
			Int64("billing_id", req.BillingID).
			Str("source_type", req.SourceType).
			Int64("source_id", req.SourceID).
			Msg("duplicate billing item, returning existing")
		return &models.ItemResult{ItemID: existingID, Existing: true}, nil
	case err == nil && !sourceExists:
		log.Warn().
			Int64("item_id", existingID).
			Str("source_type", req.SourceType).
			Int64("source_id", req.SourceID).
			Msg("billing item is orphaned, allowing a fresh row")
	case err != sql.ErrNoRows:
		tx.Rollback()
		return nil, err
	default:
		// no duplicate; a brand new item needs a live source entity
		if !sourceExists {
			tx.Rollback()
			return nil, ErrSourceNotFound
		}
	}

	unitPrice := req.UnitPrice
	if unitPrice <= 0 {
		switch req.SourceType {
		case models.SourceRoom:
			// modern assignments may derive their price from the stored rate
			unitPrice, err = s.roomRate(tx, req.SourceID)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
		case models.SourceRoomLegacy:
			// legacy rows carry no rate of their own; the charge stays zero
			// unless the caller supplied one
		default:
			tx.Rollback()
			return nil, ErrInvalidPrice
		}
	}

	lineTotal := unitPrice * float64(req.Quantity)
	discountRate, err := s.insuranceDiscountRate(tx, accountPatient)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	discountAmount := lineTotal * discountRate / 100
	finalAmount := lineTotal - discountAmount

	res, err := tx.Exec(`
		INSERT INTO billing_items
			(billing_id, source_type, source_id, description, unit_price, quantity,
			line_total, discount_rate, discount_amount, final_amount, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.BillingID, req.SourceType, req.SourceID, req.Description, unitPrice,
		req.Quantity, lineTotal, discountRate, discountAmount, finalAmount, staffID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to insert billing item: %v", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &models.ItemResult{
		ItemID:         itemID,
		LineTotal:      lineTotal,
		DiscountAmount: discountAmount,
		FinalAmount:    finalAmount,
	}, nil
}

// RecordRoomCharge appends the room-stay line item after a discharge. The
// account is resolved (or created) from the discharge facts. The assignment
// type decides which occupancy table the source id is checked against: ids
// from the two tables are unrelated sequences.
func (s *FinancialService) RecordRoomCharge(patientID int64, admissionID *int64, assignmentID int64, assignmentType string, dailyRate *float64, staffID int64) (*models.ItemResult, error) {
	account, err := s.GetOrCreateAccount(patientID, admissionID, staffID)
	if err != nil {
		return nil, err
	}

	sourceType := models.SourceRoom
	if assignmentType == inpatientmodels.AssignmentTypeLegacy {
		sourceType = models.SourceRoomLegacy
	}
	var unitPrice float64
	if dailyRate != nil {
		unitPrice = *dailyRate
	}
	return s.AddItem(models.AddItemRequest{
		BillingID:   account.ID,
		SourceType:  sourceType,
		SourceID:    assignmentID,
		Description: "Room stay",
		UnitPrice:   unitPrice,
		Quantity:    1,
	}, staffID)
}

func (s *FinancialService) sourceExists(tx *sql.Tx, table string, sourceID int64) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table)
	if err := tx.QueryRow(query, sourceID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check source entity: %v", err)
	}
	return count > 0, nil
}

func (s *FinancialService) roomRate(tx *sql.Tx, assignmentID int64) (float64, error) {
	var rate sql.NullFloat64
	err := tx.QueryRow("SELECT daily_rate FROM inpatient_room_assignments WHERE id = ?", assignmentID).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, ErrSourceNotFound
	}
	if err != nil {
		return 0, err
	}
	if !rate.Valid {
		return 0, nil
	}
	return rate.Float64, nil
}

// insuranceDiscountRate returns the active discount percentage of the
// patient's insurance provider, 0 when none is configured.
func (s *FinancialService) insuranceDiscountRate(tx *sql.Tx, patientID int64) (float64, error) {
	var rate float64
	err := tx.QueryRow(`
		SELECT ip.discount_rate
		FROM patients p
		JOIN insurance_providers ip ON p.insurance_provider_id = ip.id
		WHERE p.id = ? AND ip.is_active = 1
	`, patientID).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rate, nil
}

func admissionValue(admissionID *int64) interface{} {
	if admissionID == nil {
		return nil
	}
	return *admissionID
}
