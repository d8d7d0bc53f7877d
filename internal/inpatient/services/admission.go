package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// resolveOrCreateOpenAdmission returns the patient's most recent open
// admission, creating a new one when none exists so every room assignment
// is anchored to an admission. DB errors propagate and fail the enclosing
// assignment.
func (s *OccupancyService) resolveOrCreateOpenAdmission(tx *sql.Tx, patientID int64, at time.Time) (int64, error) {
	query := fmt.Sprintf(`
		SELECT id FROM admissions
		WHERE patient_id = ? AND %s
		ORDER BY admission_datetime DESC, id DESC
		LIMIT 1
	`, s.Caps.OpenAdmissionCondition())

	var admissionID int64
	err := tx.QueryRow(query, patientID).Scan(&admissionID)
	if err == nil {
		return admissionID, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to resolve open admission: %v", err)
	}

	// Schema-tolerant insert: the status column only exists in some schemas.
	insert := `
		INSERT INTO admissions (patient_id, admission_datetime, admission_type, admitting_diagnosis)
		VALUES (?, ?, 'Scheduled', 'Room assignment')
	`
	if s.Caps.AdmissionHasStatus {
		insert = `
		INSERT INTO admissions (patient_id, admission_datetime, admission_type, admitting_diagnosis, status)
		VALUES (?, ?, 'Scheduled', 'Room assignment', 'admitted')
	`
	}

	res, err := tx.Exec(insert, patientID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to create admission: %v", err)
	}
	admissionID, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	log.Info().Int64("patient_id", patientID).Int64("admission_id", admissionID).Msg("admission created for room assignment")
	return admissionID, nil
}
