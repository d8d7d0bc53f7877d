package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/c14220110/hospital-backend/internal/inpatient/models"
)

var (
	ErrRoomNumberTaken = errors.New("room number already exists on this floor")
	ErrRoomInUse       = errors.New("room is referenced by assignments")
	ErrTooManyBedNames = errors.New("bed_names exceeds bed_capacity")
)

// RoomService reads and maintains the room inventory.
type RoomService struct {
	DB *sql.DB
}

func NewRoomService(db *sql.DB) *RoomService {
	return &RoomService{DB: db}
}

// ListRooms returns all rooms with type name, department and decoded bed
// names, ordered by floor and room number.
func (s *RoomService) ListRooms() ([]models.Room, error) {
	query := `
		SELECT r.id, r.room_number, r.room_type_id, rt.type_name, r.floor_number,
			r.department_id, d.name, r.bed_capacity, r.bed_names, r.status
		FROM rooms r
		LEFT JOIN room_types rt ON r.room_type_id = rt.id
		LEFT JOIN departments d ON r.department_id = d.id
		ORDER BY r.floor_number, r.room_number
	`
	rows, err := s.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Room
	for rows.Next() {
		var room models.Room
		var typeID, deptID sql.NullInt64
		var typeName, deptName sql.NullString
		var bedNames sql.NullString

		if err := rows.Scan(&room.ID, &room.RoomNumber, &typeID, &typeName,
			&room.FloorNumber, &deptID, &deptName, &room.BedCapacity,
			&bedNames, &room.Status); err != nil {
			return nil, err
		}

		if typeID.Valid {
			room.RoomTypeID = &typeID.Int64
		}
		if typeName.Valid {
			room.RoomTypeName = typeName.String
		}
		if deptID.Valid {
			room.DepartmentID = &deptID.Int64
		}
		if deptName.Valid {
			room.Department = deptName.String
		}
		room.BedNames = decodeBedNames(bedNames.String)

		result = append(result, room)
	}
	return result, rows.Err()
}

// decodeBedNames parses the stored JSON list of bed names. Malformed JSON
// or a non-array value decodes to an empty list, never an error.
func decodeBedNames(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		log.Debug().Str("raw", raw).Msg("unparseable bed_names, treating as empty")
		return []string{}
	}
	return names
}

// GroupRoomsByType groups rooms by their room_type_id. Rooms without a
// type id are filtered out, not treated as an error.
func GroupRoomsByType(rooms []models.Room) map[int64][]models.Room {
	grouped := make(map[int64][]models.Room)
	filtered := 0
	for _, room := range rooms {
		if room.RoomTypeID == nil {
			filtered++
			continue
		}
		grouped[*room.RoomTypeID] = append(grouped[*room.RoomTypeID], room)
	}
	if filtered > 0 {
		log.Debug().Int("filtered", filtered).Msg("rooms without room_type_id dropped from grouping")
	}
	return grouped
}

// ListRoomTypes returns all configured room types.
func (s *RoomService) ListRoomTypes() ([]models.RoomType, error) {
	rows, err := s.DB.Query("SELECT id, type_name, base_daily_rate FROM room_types ORDER BY type_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.RoomType
	for rows.Next() {
		var rt models.RoomType
		var rate sql.NullFloat64
		if err := rows.Scan(&rt.ID, &rt.TypeName, &rate); err != nil {
			return nil, err
		}
		if rate.Valid {
			rt.BaseDailyRate = &rate.Float64
		}
		result = append(result, rt)
	}
	return result, rows.Err()
}

// GetRoom fetches a single room by id.
func (s *RoomService) GetRoom(id int64) (*models.Room, error) {
	query := `
		SELECT r.id, r.room_number, r.room_type_id, rt.type_name, r.floor_number,
			r.department_id, d.name, r.bed_capacity, r.bed_names, r.status
		FROM rooms r
		LEFT JOIN room_types rt ON r.room_type_id = rt.id
		LEFT JOIN departments d ON r.department_id = d.id
		WHERE r.id = ?
	`
	var room models.Room
	var typeID, deptID sql.NullInt64
	var typeName, deptName, bedNames sql.NullString

	err := s.DB.QueryRow(query, id).Scan(&room.ID, &room.RoomNumber, &typeID,
		&typeName, &room.FloorNumber, &deptID, &deptName, &room.BedCapacity,
		&bedNames, &room.Status)
	if err != nil {
		return nil, err
	}

	if typeID.Valid {
		room.RoomTypeID = &typeID.Int64
	}
	if typeName.Valid {
		room.RoomTypeName = typeName.String
	}
	if deptID.Valid {
		room.DepartmentID = &deptID.Int64
	}
	if deptName.Valid {
		room.Department = deptName.String
	}
	room.BedNames = decodeBedNames(bedNames.String)
	return &room, nil
}

// CreateRoom inserts a room with status available.
func (s *RoomService) CreateRoom(req models.CreateRoomRequest) (int64, error) {
	if len(req.BedNames) > req.BedCapacity {
		return 0, ErrTooManyBedNames
	}

	var existing int64
	err := s.DB.QueryRow("SELECT id FROM rooms WHERE room_number = ? AND floor_number = ?",
		req.RoomNumber, req.FloorNumber).Scan(&existing)
	if err == nil {
		return 0, ErrRoomNumberTaken
	} else if err != sql.ErrNoRows {
		return 0, err
	}

	bedNames, err := json.Marshal(req.BedNames)
	if err != nil {
		return 0, err
	}

	res, err := s.DB.Exec(`
		INSERT INTO rooms (room_number, room_type_id, floor_number, department_id, bed_capacity, bed_names, status)
		VALUES (?, ?, ?, ?, ?, ?, 'available')
	`, req.RoomNumber, req.RoomTypeID, req.FloorNumber, req.DepartmentID, req.BedCapacity, string(bedNames))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateRoom updates the mutable inventory fields of a room.
func (s *RoomService) UpdateRoom(id int64, req models.CreateRoomRequest) error {
	if len(req.BedNames) > req.BedCapacity {
		return ErrTooManyBedNames
	}

	bedNames, err := json.Marshal(req.BedNames)
	if err != nil {
		return err
	}

	res, err := s.DB.Exec(`
		UPDATE rooms
		SET room_number = ?, room_type_id = ?, floor_number = ?, department_id = ?, bed_capacity = ?, bed_names = ?
		WHERE id = ?
	`, req.RoomNumber, req.RoomTypeID, req.FloorNumber, req.DepartmentID, req.BedCapacity, string(bedNames), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteRoom removes a room, refusing while assignments still reference it.
func (s *RoomService) DeleteRoom(id int64) error {
	var refs int
	err := s.DB.QueryRow("SELECT COUNT(*) FROM inpatient_room_assignments WHERE room_id = ?", id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to check assignment references: %v", err)
	}
	if refs > 0 {
		return ErrRoomInUse
	}

	res, err := s.DB.Exec("DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
