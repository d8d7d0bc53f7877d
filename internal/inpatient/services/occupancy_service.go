package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/internal/inpatient/models"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomOccupied       = errors.New("room is occupied by another patient")
	ErrNoActiveAssignment = errors.New("no active assignment for this room")
)

// OccupancyService is the room/bed occupancy ledger. Every mutation runs in
// a single transaction with the target room row locked, so two concurrent
// assignments against the same room serialize on the row lock.
type OccupancyService struct {
	DB   *sql.DB
	Caps SchemaCapabilities
}

func NewOccupancyService(db *sql.DB, caps SchemaCapabilities) *OccupancyService {
	return &OccupancyService{DB: db, Caps: caps}
}

// openAssignment is the ledger's view of the assignment a patient currently
// holds, regardless of which table it came from.
type openAssignment struct {
	ID          int64
	RoomID      int64
	AdmissionID *int64
	Source      string
}

// AssignRoom assigns a patient to a room and bed. If the patient already
// holds a different room this is a transfer: the old room and bed are freed
// first, inside the same transaction. Reassigning a patient to the room
// they already hold is allowed and does not duplicate the active legacy row.
func (s *OccupancyService) AssignRoom(req models.AssignRoomRequest, assignedAt time.Time, staffID int64) (*models.AssignmentResult, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}

	// 1. Lock the target room row for the whole operation.
	var roomID int64
	var roomTypeID sql.NullInt64
	var roomStatus string
	err = tx.QueryRow(`
		SELECT id, room_type_id, status FROM rooms
		WHERE room_number = ? AND floor_number = ?
		FOR UPDATE
	`, req.RoomNumber, req.FloorNumber).Scan(&roomID, &roomTypeID, &roomStatus)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, ErrRoomNotFound
	} else if err != nil {
		tx.Rollback()
		return nil, err
	}

	// 2. Find the assignment the patient currently holds, if any.
	current, err := s.findOpenAssignment(tx, req.PatientID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// 3. An occupied room is only acceptable when this patient already holds it.
	if roomStatus == models.RoomStatusOccupied {
		if current == nil || current.RoomID != roomID {
			tx.Rollback()
			return nil, ErrRoomOccupied
		}
	}

	// 4. Transfer: free the old room and bed before occupying the new one.
	var transferredFrom *int64
	if current != nil && current.RoomID != roomID {
		oldRoomID := current.RoomID
		if _, err = tx.Exec("UPDATE rooms SET status = 'available' WHERE id = ?", oldRoomID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to free previous room: %v", err)
		}
		if s.Caps.HasBedsTable {
			if _, err = tx.Exec(`
				UPDATE beds SET status = 'available', assigned_patient_id = NULL
				WHERE room_id = ? AND assigned_patient_id = ?
			`, oldRoomID, req.PatientID); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to free previous bed: %v", err)
			}
		}
		transferredFrom = &oldRoomID
	}

	// 5. Every assignment is anchored to an open admission.
	admissionID, err := s.resolveOrCreateOpenAdmission(tx, req.PatientID, assignedAt)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// 6. Derive the daily rate unless an explicit positive override came in.
	var explicit *float64
	if req.DailyRate.Set {
		explicit = &req.DailyRate.Value
	}
	requestedTypeID := s.lookupRoomTypeID(tx, req.RoomType)
	var ownTypeID *int64
	if roomTypeID.Valid {
		ownTypeID = &roomTypeID.Int64
	}
	nameHint := req.RoomType
	if nameHint == "" && ownTypeID != nil {
		nameHint = s.lookupRoomTypeName(tx, *ownTypeID)
	}
	dailyRate := ResolveDailyRate(tx, s.Caps, explicit, requestedTypeID, ownTypeID, nameHint)

	// 7. Normalize the room class; unmapped classes persist as NULL and must
	// never abort the assignment.
	class := models.ClassifyRoomType(nameHint)
	var classValue interface{}
	if class.Known {
		classValue = class.Name
	}

	res, err := tx.Exec(`
		INSERT INTO inpatient_room_assignments
			(admission_id, room_id, room_type, floor_number, room_number, bed_number, daily_rate, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, admissionID, roomID, classValue, req.FloorNumber, req.RoomNumber, req.BedNumber, rateValue(dailyRate), assignedAt)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to insert assignment: %v", err)
	}
	assignmentID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// 8. Write-through to the legacy table: move the row the patient already
	// holds if we found one there, otherwise the active row of this
	// admission, otherwise insert. The held row is keyed by id because its
	// admission_id may be NULL or stale.
	if s.Caps.HasLegacyAssignments {
		bedID := s.lookupBedID(tx, roomID, req.BedNumber)
		var heldRowID *int64
		if current != nil && current.Source == models.AssignmentTypeLegacy {
			heldRowID = &current.ID
		}
		if err = s.upsertLegacyAssignment(tx, req.PatientID, roomID, bedID, admissionID, heldRowID, assignedAt); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// 9. Occupy room and bed.
	if _, err = tx.Exec("UPDATE rooms SET status = 'occupied' WHERE id = ?", roomID); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to occupy room: %v", err)
	}
	if s.Caps.HasBedsTable {
		// a bed change within the room must release the bed held so far
		if _, err = tx.Exec(`
			UPDATE beds SET status = 'available', assigned_patient_id = NULL
			WHERE room_id = ? AND assigned_patient_id = ? AND bed_number <> ?
		`, roomID, req.PatientID, req.BedNumber); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to release previous bed: %v", err)
		}
		if _, err = tx.Exec(`
			UPDATE beds SET status = 'occupied', assigned_patient_id = ?
			WHERE room_id = ? AND bed_number = ?
		`, req.PatientID, roomID, req.BedNumber); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to occupy bed: %v", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Int64("patient_id", req.PatientID).
		Int64("room_id", roomID).
		Int64("admission_id", admissionID).
		Int64("assignment_id", assignmentID).
		Int64("staff_id", staffID).
		Msg("room assigned")

	return &models.AssignmentResult{
		AdmissionID:         admissionID,
		RoomID:              roomID,
		TransferredFromRoom: transferredFrom,
	}, nil
}

// DischargeRoom ends the active assignment for a room, frees room and bed,
// and reports the facts billing needs. The modern table is preferred; the
// legacy table is the fallback.
func (s *OccupancyService) DischargeRoom(roomID int64, staffID int64) (*models.DischargeResult, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}

	var roomStatus string
	err = tx.QueryRow("SELECT status FROM rooms WHERE id = ? FOR UPDATE", roomID).Scan(&roomStatus)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, ErrRoomNotFound
	} else if err != nil {
		tx.Rollback()
		return nil, err
	}

	result := &models.DischargeResult{RoomID: roomID}

	// Room status is the authoritative "active" signal for the modern table,
	// which carries no ended marker of its own in older schemas.
	found := false
	if roomStatus == models.RoomStatusOccupied {
		var assignmentID, admissionID, patientID int64
		var dailyRate sql.NullFloat64
		err = tx.QueryRow(`
			SELECT a.id, a.admission_id, ad.patient_id, a.daily_rate
			FROM inpatient_room_assignments a
			JOIN admissions ad ON a.admission_id = ad.id
			WHERE a.room_id = ?
			ORDER BY a.assigned_at DESC, a.id DESC
			LIMIT 1
		`, roomID).Scan(&assignmentID, &admissionID, &patientID, &dailyRate)
		if err == nil {
			result.AssignmentID = assignmentID
			result.AssignmentType = models.AssignmentTypeModern
			result.PatientID = patientID
			result.AdmissionID = &admissionID
			if dailyRate.Valid {
				result.DailyRate = &dailyRate.Float64
			}
			found = true
		} else if err != sql.ErrNoRows {
			tx.Rollback()
			return nil, err
		}
	}

	if !found && s.Caps.HasLegacyAssignments {
		var assignmentID, patientID int64
		var admissionID sql.NullInt64
		err = tx.QueryRow(`
			SELECT id, patient_id, admission_id FROM room_assignment
			WHERE room_id = ? AND status = 'active'
			ORDER BY date_in DESC LIMIT 1
		`, roomID).Scan(&assignmentID, &patientID, &admissionID)
		if err == nil {
			result.AssignmentID = assignmentID
			result.AssignmentType = models.AssignmentTypeLegacy
			result.PatientID = patientID
			if admissionID.Valid {
				result.AdmissionID = &admissionID.Int64
			}
			found = true
		} else if err != sql.ErrNoRows {
			tx.Rollback()
			return nil, err
		}
	}

	if !found {
		tx.Rollback()
		return nil, ErrNoActiveAssignment
	}

	if s.Caps.HasLegacyAssignments {
		if _, err = tx.Exec(`
			UPDATE room_assignment SET status = 'completed', date_out = NOW()
			WHERE room_id = ? AND status = 'active'
		`, roomID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to close legacy assignment: %v", err)
		}
	}
	if s.Caps.HasModernEndedAt && result.AssignmentType == models.AssignmentTypeModern {
		if _, err = tx.Exec("UPDATE inpatient_room_assignments SET ended_at = NOW() WHERE id = ?",
			result.AssignmentID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to stamp assignment end: %v", err)
		}
	}

	if _, err = tx.Exec("UPDATE rooms SET status = 'available' WHERE id = ?", roomID); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to free room: %v", err)
	}
	if s.Caps.HasBedsTable {
		if _, err = tx.Exec(`
			UPDATE beds SET status = 'available', assigned_patient_id = NULL
			WHERE room_id = ?
		`, roomID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to free beds: %v", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Int64("room_id", roomID).
		Int64("patient_id", result.PatientID).
		Int64("assignment_id", result.AssignmentID).
		Str("assignment_type", result.AssignmentType).
		Int64("staff_id", staffID).
		Msg("room discharged")

	return result, nil
}

// findOpenAssignment resolves the assignment the patient currently holds.
// The modern table is checked first through the admission join, with the
// room status as the authoritative activity signal, then the legacy table
// by patient and status.
func (s *OccupancyService) findOpenAssignment(tx *sql.Tx, patientID int64) (*openAssignment, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.room_id, a.admission_id
		FROM inpatient_room_assignments a
		JOIN admissions ad ON a.admission_id = ad.id
		JOIN rooms r ON a.room_id = r.id AND r.status = 'occupied'
		WHERE ad.patient_id = ? AND ad.%s
		ORDER BY a.assigned_at DESC, a.id DESC
		LIMIT 1
	`, s.Caps.OpenAdmissionCondition())

	var found openAssignment
	var admissionID int64
	err := tx.QueryRow(query, patientID).Scan(&found.ID, &found.RoomID, &admissionID)
	if err == nil {
		found.AdmissionID = &admissionID
		found.Source = models.AssignmentTypeModern
		return &found, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	if !s.Caps.HasLegacyAssignments {
		return nil, nil
	}

	var legacyAdmission sql.NullInt64
	err = tx.QueryRow(`
		SELECT id, room_id, admission_id FROM room_assignment
		WHERE patient_id = ? AND status = 'active'
		ORDER BY date_in DESC LIMIT 1
	`, patientID).Scan(&found.ID, &found.RoomID, &legacyAdmission)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if legacyAdmission.Valid {
		found.AdmissionID = &legacyAdmission.Int64
	}
	found.Source = models.AssignmentTypeLegacy
	return &found, nil
}

// upsertLegacyAssignment keeps at most one active legacy row per patient:
// an existing active row is moved to the new room/bed instead of duplicated.
// knownRowID pins the row when the caller already resolved it; the
// admission-keyed lookup is only the fallback.
func (s *OccupancyService) upsertLegacyAssignment(tx *sql.Tx, patientID, roomID int64, bedID *int64, admissionID int64, knownRowID *int64, dateIn time.Time) error {
	var existingID int64
	haveRow := false
	if knownRowID != nil {
		existingID, haveRow = *knownRowID, true
	} else {
		err := tx.QueryRow(`
			SELECT id FROM room_assignment
			WHERE admission_id = ? AND status = 'active'
			LIMIT 1
		`, admissionID).Scan(&existingID)
		if err == nil {
			haveRow = true
		} else if err != sql.ErrNoRows {
			return err
		}
	}
	if haveRow {
		_, err := tx.Exec(`
			UPDATE room_assignment SET room_id = ?, bed_id = ?, admission_id = ?, date_in = ?
			WHERE id = ?
		`, roomID, bedValue(bedID), admissionID, dateIn, existingID)
		if err != nil {
			return fmt.Errorf("failed to update legacy assignment: %v", err)
		}
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO room_assignment (patient_id, room_id, bed_id, admission_id, date_in, status)
		VALUES (?, ?, ?, ?, ?, 'active')
	`, patientID, roomID, bedValue(bedID), admissionID, dateIn); err != nil {
		return fmt.Errorf("failed to insert legacy assignment: %v", err)
	}
	return nil
}

// lookupRoomTypeID resolves a configured type name to its id; nil when the
// name is empty or unknown.
func (s *OccupancyService) lookupRoomTypeID(tx *sql.Tx, typeName string) *int64 {
	if typeName == "" {
		return nil
	}
	var id int64
	if err := tx.QueryRow("SELECT id FROM room_types WHERE type_name = ?", typeName).Scan(&id); err != nil {
		return nil
	}
	return &id
}

func (s *OccupancyService) lookupRoomTypeName(tx *sql.Tx, typeID int64) string {
	var name string
	if err := tx.QueryRow("SELECT type_name FROM room_types WHERE id = ?", typeID).Scan(&name); err != nil {
		return ""
	}
	return name
}

// lookupBedID resolves the bed row for (room, bed_number); nil when the
// beds table is absent or the bed is not configured.
func (s *OccupancyService) lookupBedID(tx *sql.Tx, roomID int64, bedNumber string) *int64 {
	if !s.Caps.HasBedsTable || bedNumber == "" {
		return nil
	}
	var id int64
	if err := tx.QueryRow("SELECT id FROM beds WHERE room_id = ? AND bed_number = ?", roomID, bedNumber).Scan(&id); err != nil {
		return nil
	}
	return &id
}

func rateValue(rate *float64) interface{} {
	if rate == nil {
		return nil
	}
	return *rate
}

func bedValue(bedID *int64) interface{} {
	if bedID == nil {
		return nil
	}
	return *bedID
}
