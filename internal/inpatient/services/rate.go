package services

import (
	"database/sql"
	"strings"

	"github.com/rs/zerolog/log"
)

// rowQuerier is satisfied by *sql.DB and *sql.Tx so the rate lookup can run
// inside the assignment transaction.
type rowQuerier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// fallbackDailyRates maps a normalized substring of the type name to a
// daily rate. Order matters: "semi-private" must match before "private".
var fallbackDailyRates = []struct {
	substr string
	rate   float64
}{
	{"semi-private", 2500},
	{"semi private", 2500},
	{"private", 3500},
	{"icu", 5000},
	{"isolation", 3000},
	{"emergency", 2000},
	{"consultation", 0},
	{"ward", 1500},
}

// ResolveDailyRate derives the daily rate for a room assignment. Resolution
// order: explicit positive value, base_daily_rate by the requested type id,
// the same lookup by the room's own type id, the fixed fallback table keyed
// by type name, nil. A nil rate never blocks an assignment.
func ResolveDailyRate(q rowQuerier, caps SchemaCapabilities, explicit *float64, requestedTypeID, roomTypeID *int64, nameHint string) *float64 {
	if explicit != nil && *explicit > 0 {
		return explicit
	}

	if caps.RoomTypeHasBaseRate {
		if rate := baseRateByTypeID(q, requestedTypeID); rate != nil {
			return rate
		}
		if roomTypeID != nil && (requestedTypeID == nil || *roomTypeID != *requestedTypeID) {
			if rate := baseRateByTypeID(q, roomTypeID); rate != nil {
				return rate
			}
		}
	}

	if rate := FallbackRateByName(nameHint); rate != nil {
		return rate
	}

	log.Debug().Str("type_name", nameHint).Msg("no daily rate resolved for room type")
	return nil
}

func baseRateByTypeID(q rowQuerier, typeID *int64) *float64 {
	if typeID == nil {
		return nil
	}
	var rate sql.NullFloat64
	err := q.QueryRow("SELECT base_daily_rate FROM room_types WHERE id = ?", *typeID).Scan(&rate)
	if err != nil || !rate.Valid {
		return nil
	}
	return &rate.Float64
}

// FallbackRateByName matches the hard-coded rate table on a normalized
// substring of the type name. Returns nil when nothing matches.
func FallbackRateByName(name string) *float64 {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil
	}
	for _, entry := range fallbackDailyRates {
		if strings.Contains(normalized, entry.substr) {
			rate := entry.rate
			return &rate
		}
	}
	return nil
}
