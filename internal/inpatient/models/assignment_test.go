package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalRate_AcceptsNumberStringAndSentinel(t *testing.T) {
	tests := []struct {
		raw       string
		wantSet   bool
		wantValue float64
	}{
		{`{"daily_rate": 2500}`, true, 2500},
		{`{"daily_rate": "2500.50"}`, true, 2500.50},
		{`{"daily_rate": "Auto-calculated"}`, false, 0},
		{`{"daily_rate": "auto-calculated"}`, false, 0},
		{`{"daily_rate": ""}`, false, 0},
		{`{"daily_rate": null}`, false, 0},
		{`{}`, false, 0},
	}
	for _, tt := range tests {
		var req AssignRoomRequest
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &req), "raw %s", tt.raw)
		assert.Equal(t, tt.wantSet, req.DailyRate.Set, "raw %s", tt.raw)
		if tt.wantSet {
			assert.Equal(t, tt.wantValue, req.DailyRate.Value, "raw %s", tt.raw)
		}
	}
}

func TestOptionalRate_FormParam(t *testing.T) {
	tests := []struct {
		param     string
		wantSet   bool
		wantValue float64
	}{
		{"2500", true, 2500},
		{"2500.50", true, 2500.50},
		{"Auto-calculated", false, 0},
		{"", false, 0},
		{"not-a-number", false, 0},
	}
	for _, tt := range tests {
		var rate OptionalRate
		require.NoError(t, rate.UnmarshalParam(tt.param), "param %q", tt.param)
		assert.Equal(t, tt.wantSet, rate.Set, "param %q", tt.param)
		if tt.wantSet {
			assert.Equal(t, tt.wantValue, rate.Value, "param %q", tt.param)
		}
	}
}
