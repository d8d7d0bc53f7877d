package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/hospital-backend/internal/inpatient/models"
)

func setupOccupancy(t *testing.T, caps SchemaCapabilities) (*sql.DB, sqlmock.Sqlmock, *OccupancyService) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewOccupancyService(db, caps)
}

func fullCaps() SchemaCapabilities {
	return SchemaCapabilities{
		HasBedsTable:             true,
		HasLegacyAssignments:     true,
		AdmissionDischargeColumn: "discharge_datetime",
	}
}

func TestAssignRoom_NewAdmissionWithFallbackRate(t *testing.T) {
	db, mock, svc := setupOccupancy(t, fullCaps())
	defer db.Close()

	assignedAt := time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)
	req := models.AssignRoomRequest{
		PatientID:    42,
		DepartmentID: 3,
		RoomType:     "Ward",
		FloorNumber:  "2",
		RoomNumber:   "201",
		BedNumber:    "Bed A",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("201", "2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(9), nil, "available"))

	// no open assignment in either table
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}))
	mock.ExpectQuery("SELECT id, room_id, admission_id FROM room_assignment").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}))

	// no open admission, one gets created
	mock.ExpectQuery("SELECT id FROM admissions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO admissions").
		WithArgs(int64(42), assignedAt).
		WillReturnResult(sqlmock.NewResult(77, 1))

	// requested type name is not configured, rate falls back to the table
	mock.ExpectQuery("SELECT id FROM room_types WHERE type_name").
		WithArgs("Ward").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectExec("INSERT INTO inpatient_room_assignments").
		WithArgs(int64(77), int64(9), "Ward", "2", "201", "Bed A", 1500.0, assignedAt).
		WillReturnResult(sqlmock.NewResult(501, 1))

	// legacy write-through: bed lookup, no active row, insert
	mock.ExpectQuery("SELECT id FROM beds WHERE room_id").
		WithArgs(int64(9), "Bed A").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectQuery("SELECT id FROM room_assignment").
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO room_assignment").
		WithArgs(int64(42), int64(9), int64(31), int64(77), assignedAt).
		WillReturnResult(sqlmock.NewResult(601, 1))

	mock.ExpectExec("UPDATE rooms SET status = 'occupied'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE beds SET status = 'available'").
		WithArgs(int64(9), int64(42), "Bed A").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE beds SET status = 'occupied'").
		WithArgs(int64(42), int64(9), "Bed A").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.AssignRoom(req, assignedAt, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(77), result.AdmissionID)
	assert.Equal(t, int64(9), result.RoomID)
	assert.Nil(t, result.TransferredFromRoom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_OccupiedByAnotherPatient(t *testing.T) {
	caps := SchemaCapabilities{AdmissionDischargeColumn: "discharge_datetime"}
	db, mock, svc := setupOccupancy(t, caps)
	defer db.Close()

	req := models.AssignRoomRequest{
		PatientID:    7,
		DepartmentID: 3,
		FloorNumber:  "2",
		RoomNumber:   "201",
		BedNumber:    "Bed A",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("201", "2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(9), int64(2), "occupied"))
	// patient 7 holds nothing
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}))
	mock.ExpectRollback()

	_, err := svc.AssignRoom(req, time.Now(), 5)
	assert.ErrorIs(t, err, ErrRoomOccupied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_TransferFreesOldRoom(t *testing.T) {
	caps := SchemaCapabilities{AdmissionDischargeColumn: "discharge_datetime"}
	db, mock, svc := setupOccupancy(t, caps)
	defer db.Close()

	assignedAt := time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	req := models.AssignRoomRequest{
		PatientID:    42,
		DepartmentID: 3,
		FloorNumber:  "3",
		RoomNumber:   "305",
		BedNumber:    "Bed B",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("305", "3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(12), int64(4), "available"))

	// patient currently holds room 9
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}).
			AddRow(int64(501), int64(9), int64(77)))

	mock.ExpectExec("UPDATE rooms SET status = 'available'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT id FROM admissions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	// no requested type: the room's own type drives the rate and class
	mock.ExpectQuery("SELECT type_name FROM room_types WHERE id").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"type_name"}).AddRow("ICU"))

	mock.ExpectExec("INSERT INTO inpatient_room_assignments").
		WithArgs(int64(77), int64(12), "ICU", "3", "305", "Bed B", 5000.0, assignedAt).
		WillReturnResult(sqlmock.NewResult(502, 1))

	mock.ExpectExec("UPDATE rooms SET status = 'occupied'").
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.AssignRoom(req, assignedAt, 5)
	require.NoError(t, err)
	require.NotNil(t, result.TransferredFromRoom)
	assert.Equal(t, int64(9), *result.TransferredFromRoom)
	assert.Equal(t, int64(12), result.RoomID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_SelfReassignmentUpdatesLegacyRow(t *testing.T) {
	caps := SchemaCapabilities{
		HasLegacyAssignments:     true,
		AdmissionDischargeColumn: "discharge_datetime",
	}
	db, mock, svc := setupOccupancy(t, caps)
	defer db.Close()

	assignedAt := time.Date(2025, 8, 16, 9, 0, 0, 0, time.UTC)
	req := models.AssignRoomRequest{
		PatientID:    42,
		DepartmentID: 3,
		RoomType:     "Ward",
		FloorNumber:  "2",
		RoomNumber:   "201",
		BedNumber:    "Bed A",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("201", "2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(9), nil, "occupied"))

	// the same patient already holds room 9, so the occupied room is fine
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}).
			AddRow(int64(501), int64(9), int64(77)))

	mock.ExpectQuery("SELECT id FROM admissions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	mock.ExpectQuery("SELECT id FROM room_types WHERE type_name").
		WithArgs("Ward").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectExec("INSERT INTO inpatient_room_assignments").
		WithArgs(int64(77), int64(9), "Ward", "2", "201", "Bed A", 1500.0, assignedAt).
		WillReturnResult(sqlmock.NewResult(502, 1))

	// legacy upsert finds the active row and updates instead of duplicating
	mock.ExpectQuery("SELECT id FROM room_assignment").
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(601)))
	mock.ExpectExec("UPDATE room_assignment SET room_id").
		WithArgs(int64(9), nil, int64(77), assignedAt, int64(601)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE rooms SET status = 'occupied'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.AssignRoom(req, assignedAt, 5)
	require.NoError(t, err)
	assert.Nil(t, result.TransferredFromRoom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_TransferMovesNullAdmissionLegacyRow(t *testing.T) {
	caps := SchemaCapabilities{
		HasLegacyAssignments:     true,
		AdmissionDischargeColumn: "discharge_datetime",
	}
	db, mock, svc := setupOccupancy(t, caps)
	defer db.Close()

	assignedAt := time.Date(2025, 8, 17, 9, 0, 0, 0, time.UTC)
	req := models.AssignRoomRequest{
		PatientID:    42,
		DepartmentID: 3,
		RoomType:     "Ward",
		FloorNumber:  "3",
		RoomNumber:   "305",
		BedNumber:    "Bed B",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("305", "3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(12), nil, "available"))

	// the held assignment is a legacy row without an admission reference
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}))
	mock.ExpectQuery("SELECT id, room_id, admission_id FROM room_assignment").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}).
			AddRow(int64(601), int64(9), nil))

	mock.ExpectExec("UPDATE rooms SET status = 'available'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT id FROM admissions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	mock.ExpectQuery("SELECT id FROM room_types WHERE type_name").
		WithArgs("Ward").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectExec("INSERT INTO inpatient_room_assignments").
		WithArgs(int64(77), int64(12), "Ward", "3", "305", "Bed B", 1500.0, assignedAt).
		WillReturnResult(sqlmock.NewResult(502, 1))

	// the held row itself is moved by id and rebound to the admission; no
	// admission-keyed lookup, no second active row
	mock.ExpectExec("UPDATE room_assignment SET room_id").
		WithArgs(int64(12), nil, int64(77), assignedAt, int64(601)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE rooms SET status = 'occupied'").
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.AssignRoom(req, assignedAt, 5)
	require.NoError(t, err)
	require.NotNil(t, result.TransferredFromRoom)
	assert.Equal(t, int64(9), *result.TransferredFromRoom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_BedChangeWithinRoomFreesOldBed(t *testing.T) {
	db, mock, svc := setupOccupancy(t, fullCaps())
	defer db.Close()

	assignedAt := time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC)
	req := models.AssignRoomRequest{
		PatientID:    42,
		DepartmentID: 3,
		RoomType:     "Ward",
		FloorNumber:  "2",
		RoomNumber:   "201",
		BedNumber:    "Bed B",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("201", "2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(9), nil, "occupied"))

	// the same patient holds room 9 on Bed A and moves to Bed B
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}).
			AddRow(int64(501), int64(9), int64(77)))

	mock.ExpectQuery("SELECT id FROM admissions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	mock.ExpectQuery("SELECT id FROM room_types WHERE type_name").
		WithArgs("Ward").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectExec("INSERT INTO inpatient_room_assignments").
		WithArgs(int64(77), int64(9), "Ward", "2", "201", "Bed B", 1500.0, assignedAt).
		WillReturnResult(sqlmock.NewResult(502, 1))

	mock.ExpectQuery("SELECT id FROM beds WHERE room_id").
		WithArgs(int64(9), "Bed B").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(32)))
	mock.ExpectQuery("SELECT id FROM room_assignment").
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(601)))
	mock.ExpectExec("UPDATE room_assignment SET room_id").
		WithArgs(int64(9), int64(32), int64(77), assignedAt, int64(601)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE rooms SET status = 'occupied'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Bed A is released before Bed B is taken
	mock.ExpectExec("UPDATE beds SET status = 'available'").
		WithArgs(int64(9), int64(42), "Bed B").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE beds SET status = 'occupied'").
		WithArgs(int64(42), int64(9), "Bed B").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.AssignRoom(req, assignedAt, 5)
	require.NoError(t, err)
	assert.Nil(t, result.TransferredFromRoom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_RoomNotFound(t *testing.T) {
	db, mock, svc := setupOccupancy(t, fullCaps())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("999", "9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}))
	mock.ExpectRollback()

	_, err := svc.AssignRoom(models.AssignRoomRequest{
		PatientID: 1, DepartmentID: 1, FloorNumber: "9", RoomNumber: "999", BedNumber: "Bed A",
	}, time.Now(), 5)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoom_RollsBackOnInsertFailure(t *testing.T) {
	caps := SchemaCapabilities{AdmissionDischargeColumn: "discharge_datetime"}
	db, mock, svc := setupOccupancy(t, caps)
	defer db.Close()

	assignedAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, room_type_id, status FROM rooms").
		WithArgs("201", "2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_type_id", "status"}).
			AddRow(int64(9), nil, "available"))
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "admission_id"}))
	mock.ExpectQuery("SELECT id FROM admissions").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))
	mock.ExpectQuery("SELECT id FROM room_types WHERE type_name").
		WithArgs("Ward").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO inpatient_room_assignments").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := svc.AssignRoom(models.AssignRoomRequest{
		PatientID: 42, DepartmentID: 3, RoomType: "Ward",
		FloorNumber: "2", RoomNumber: "201", BedNumber: "Bed A",
	}, assignedAt, 5)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDischargeRoom_ModernAssignment(t *testing.T) {
	db, mock, svc := setupOccupancy(t, fullCaps())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM rooms").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("occupied"))
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admission_id", "patient_id", "daily_rate"}).
			AddRow(int64(501), int64(77), int64(42), 1500.0))
	mock.ExpectExec("UPDATE room_assignment SET status = 'completed'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rooms SET status = 'available'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE beds SET status = 'available'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.DischargeRoom(9, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(501), result.AssignmentID)
	assert.Equal(t, models.AssignmentTypeModern, result.AssignmentType)
	assert.Equal(t, int64(42), result.PatientID)
	require.NotNil(t, result.AdmissionID)
	assert.Equal(t, int64(77), *result.AdmissionID)
	require.NotNil(t, result.DailyRate)
	assert.Equal(t, 1500.0, *result.DailyRate)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDischargeRoom_NoActiveAssignment(t *testing.T) {
	db, mock, svc := setupOccupancy(t, fullCaps())
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM rooms").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("available"))
	mock.ExpectQuery("FROM room_assignment").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "admission_id"}))
	mock.ExpectRollback()

	_, err := svc.DischargeRoom(9, 5)
	assert.ErrorIs(t, err, ErrNoActiveAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDischargeRoom_LegacyFallback(t *testing.T) {
	caps := SchemaCapabilities{
		HasLegacyAssignments:     true,
		AdmissionDischargeColumn: "discharge_datetime",
	}
	db, mock, svc := setupOccupancy(t, caps)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM rooms").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("occupied"))
	// nothing in the modern table for this room
	mock.ExpectQuery("FROM inpatient_room_assignments a").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admission_id", "patient_id", "daily_rate"}))
	mock.ExpectQuery("FROM room_assignment").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "admission_id"}).
			AddRow(int64(601), int64(42), nil))
	mock.ExpectExec("UPDATE room_assignment SET status = 'completed'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rooms SET status = 'available'").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.DischargeRoom(9, 5)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentTypeLegacy, result.AssignmentType)
	assert.Equal(t, int64(601), result.AssignmentID)
	assert.Nil(t, result.AdmissionID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
