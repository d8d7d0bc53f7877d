package models

import "time"

// Admission anchors one hospital stay. Depending on the live schema the
// discharge marker is either a nullable discharge_datetime or a status
// column; the ledger only ever reads "is there an open admission".
type Admission struct {
	ID                 int64      `json:"id" db:"id"`
	PatientID          int64      `json:"patient_id" db:"patient_id"`
	AdmissionDatetime  time.Time  `json:"admission_datetime" db:"admission_datetime"`
	DischargeDatetime  *time.Time `json:"discharge_datetime,omitempty" db:"discharge_datetime"`
	AdmissionType      string     `json:"admission_type,omitempty" db:"admission_type"`
	AdmittingDiagnosis string     `json:"admitting_diagnosis,omitempty" db:"admitting_diagnosis"`
}
