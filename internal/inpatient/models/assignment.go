package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// AssignmentTypeModern and AssignmentTypeLegacy tag which table an
// assignment row came from.
const (
	AssignmentTypeModern = "modern"
	AssignmentTypeLegacy = "legacy"
)

// ModernAssignment is a row of inpatient_room_assignments, keyed by admission.
type ModernAssignment struct {
	ID          int64     `json:"id" db:"id"`
	AdmissionID int64     `json:"admission_id" db:"admission_id"`
	RoomID      int64     `json:"room_id" db:"room_id"`
	RoomType    *string   `json:"room_type" db:"room_type"`
	FloorNumber string    `json:"floor_number" db:"floor_number"`
	RoomNumber  string    `json:"room_number" db:"room_number"`
	BedNumber   string    `json:"bed_number" db:"bed_number"`
	DailyRate   *float64  `json:"daily_rate" db:"daily_rate"`
	AssignedAt  time.Time `json:"assigned_at" db:"assigned_at"`
}

// LegacyAssignment is a row of room_assignment, keyed by patient. Kept for
// backward compatibility and reporting.
type LegacyAssignment struct {
	ID          int64      `json:"id" db:"id"`
	PatientID   int64      `json:"patient_id" db:"patient_id"`
	RoomID      int64      `json:"room_id" db:"room_id"`
	BedID       *int64     `json:"bed_id" db:"bed_id"`
	AdmissionID *int64     `json:"admission_id" db:"admission_id"`
	DateIn      time.Time  `json:"date_in" db:"date_in"`
	DateOut     *time.Time `json:"date_out" db:"date_out"`
	Status      string     `json:"status" db:"status"`
}

// OptionalRate accepts a JSON number, a numeric string, or the front-end
// sentinel "Auto-calculated" (treated as absent, like an empty value).
type OptionalRate struct {
	Value float64
	Set   bool
}

func (r *OptionalRate) UnmarshalJSON(data []byte) error {
	r.Value, r.Set = 0, false

	// json.Unmarshal leaves a float64 untouched on null, so guard first
	if strings.TrimSpace(string(data)) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		r.Value, r.Set = num, true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		// null or something unusable; stay unset
		return nil
	}
	r.setFromString(str)
	return nil
}

// UnmarshalParam makes echo's form binder accept the field the same way.
func (r *OptionalRate) UnmarshalParam(param string) error {
	r.Value, r.Set = 0, false
	r.setFromString(param)
	return nil
}

func (r *OptionalRate) setFromString(str string) {
	str = strings.TrimSpace(str)
	if str == "" || strings.EqualFold(str, "Auto-calculated") {
		return
	}
	if parsed, err := strconv.ParseFloat(str, 64); err == nil {
		r.Value, r.Set = parsed, true
	}
}

// AssignRoomRequest is the POST /api/rooms/assign body, accepted as JSON
// or a form post.
type AssignRoomRequest struct {
	PatientID    int64        `json:"patient_id" form:"patient_id"`
	DepartmentID int64        `json:"department_id" form:"department_id"`
	RoomType     string       `json:"room_type" form:"room_type"`
	FloorNumber  string       `json:"floor_number" form:"floor_number"`
	RoomNumber   string       `json:"room_number" form:"room_number"`
	BedNumber    string       `json:"bed_number" form:"bed_number"`
	AssignedAt   string       `json:"assigned_at" form:"assigned_at"`
	DailyRate    OptionalRate `json:"daily_rate" form:"daily_rate"`
}

// AssignmentResult is what AssignRoom reports back to the controller.
type AssignmentResult struct {
	AdmissionID         int64  `json:"admission_id"`
	RoomID              int64  `json:"room_id"`
	TransferredFromRoom *int64 `json:"transferred_from_room_id"`
}

// DischargeResult carries the structural facts the billing side needs.
type DischargeResult struct {
	AssignmentID   int64    `json:"assignment_id"`
	AssignmentType string   `json:"assignment_type"`
	PatientID      int64    `json:"patient_id"`
	AdmissionID    *int64   `json:"admission_id"`
	RoomID         int64    `json:"room_id"`
	DailyRate      *float64 `json:"daily_rate,omitempty"`
}
