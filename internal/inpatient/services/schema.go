package services

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// SchemaCapabilities describes which optional tables and columns exist in
// the live schema. It is resolved once at startup and injected into the
// services, so no query path has to probe information_schema on its own.
type SchemaCapabilities struct {
	HasBedsTable             bool
	HasLegacyAssignments     bool
	HasModernEndedAt         bool
	AdmissionDischargeColumn string // name of the nullable discharge datetime column, "" if absent
	AdmissionHasStatus       bool
	RoomTypeHasBaseRate      bool
}

// OpenAdmissionCondition returns the SQL predicate selecting admissions
// that have not been discharged, depending on which marker the schema has.
func (c SchemaCapabilities) OpenAdmissionCondition() string {
	if c.AdmissionDischargeColumn != "" {
		return fmt.Sprintf("%s IS NULL", c.AdmissionDischargeColumn)
	}
	if c.AdmissionHasStatus {
		return "status = 'admitted'"
	}
	return "discharge_datetime IS NULL"
}

// ResolveSchemaCapabilities probes information_schema for the optional
// parts of the inpatient schema. Probe failures are fatal: running with a
// wrong capability map corrupts occupancy bookkeeping.
func ResolveSchemaCapabilities(db *sql.DB, dbName string) (SchemaCapabilities, error) {
	caps := SchemaCapabilities{}

	var err error
	if caps.HasBedsTable, err = tableExists(db, dbName, "beds"); err != nil {
		return caps, err
	}
	if caps.HasLegacyAssignments, err = tableExists(db, dbName, "room_assignment"); err != nil {
		return caps, err
	}
	if caps.HasModernEndedAt, err = columnExists(db, dbName, "inpatient_room_assignments", "ended_at"); err != nil {
		return caps, err
	}

	hasDischargeDT, err := columnExists(db, dbName, "admissions", "discharge_datetime")
	if err != nil {
		return caps, err
	}
	if hasDischargeDT {
		caps.AdmissionDischargeColumn = "discharge_datetime"
	}
	if caps.AdmissionHasStatus, err = columnExists(db, dbName, "admissions", "status"); err != nil {
		return caps, err
	}
	if caps.RoomTypeHasBaseRate, err = columnExists(db, dbName, "room_types", "base_daily_rate"); err != nil {
		return caps, err
	}

	log.Info().
		Bool("beds_table", caps.HasBedsTable).
		Bool("legacy_assignments", caps.HasLegacyAssignments).
		Bool("modern_ended_at", caps.HasModernEndedAt).
		Str("admission_discharge_column", caps.AdmissionDischargeColumn).
		Bool("admission_status", caps.AdmissionHasStatus).
		Bool("base_daily_rate", caps.RoomTypeHasBaseRate).
		Msg("resolved schema capabilities")

	return caps, nil
}

func tableExists(db *sql.DB, dbName, table string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	`, dbName, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to probe table %s: %v", table, err)
	}
	return count > 0, nil
}

func columnExists(db *sql.DB, dbName, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?
	`, dbName, table, column).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to probe column %s.%s: %v", table, column, err)
	}
	return count > 0, nil
}
