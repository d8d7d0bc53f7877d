package models

import "time"

// Room represents one physical room together with its decoded bed names.
type Room struct {
	ID           int64     `json:"id" db:"id"`
	RoomNumber   string    `json:"room_number" db:"room_number"`
	RoomTypeID   *int64    `json:"room_type_id" db:"room_type_id"`
	RoomTypeName string    `json:"room_type_name,omitempty"`
	FloorNumber  string    `json:"floor_number" db:"floor_number"`
	DepartmentID *int64    `json:"department_id" db:"department_id"`
	Department   string    `json:"department,omitempty"`
	BedCapacity  int       `json:"bed_capacity" db:"bed_capacity"`
	BedNames     []string  `json:"bed_names"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at,omitempty" db:"created_at"`
}

// RoomType mirrors the room_types row, including the configured daily rate.
type RoomType struct {
	ID            int64    `json:"id" db:"id"`
	TypeName      string   `json:"type_name" db:"type_name"`
	BaseDailyRate *float64 `json:"base_daily_rate" db:"base_daily_rate"`
}

// Bed is the optional per-bed granularity row. AssignedPatientID is non-nil
// exactly when Status is "occupied".
type Bed struct {
	ID                int64  `json:"id" db:"id"`
	RoomID            int64  `json:"room_id" db:"room_id"`
	BedNumber         string `json:"bed_number" db:"bed_number"`
	Status            string `json:"status" db:"status"`
	AssignedPatientID *int64 `json:"assigned_patient_id" db:"assigned_patient_id"`
}

const (
	RoomStatusAvailable = "available"
	RoomStatusOccupied  = "occupied"
)

type CreateRoomRequest struct {
	RoomNumber   string   `json:"room_number"`
	RoomTypeID   *int64   `json:"room_type_id"`
	FloorNumber  string   `json:"floor_number"`
	DepartmentID *int64   `json:"department_id"`
	BedCapacity  int      `json:"bed_capacity"`
	BedNames     []string `json:"bed_names"`
}
