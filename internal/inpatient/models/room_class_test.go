package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRoomType(t *testing.T) {
	tests := []struct {
		name      string
		wantKnown bool
		wantClass string
	}{
		{"Ward", true, ClassWard},
		{"General Ward B", true, ClassWard},
		{"Semi-Private", true, ClassSemiPrivate},
		{"semi private deluxe", true, ClassSemiPrivate},
		{"Private", true, ClassPrivate},
		{"Isolation", true, ClassIsolation},
		{"ICU", true, ClassICU},
		{"Intensive Care", true, ClassICU},
		{"Emergency", false, ""},
		{"Consultation", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		got := ClassifyRoomType(tt.name)
		assert.Equal(t, tt.wantKnown, got.Known, "name %q", tt.name)
		if tt.wantKnown {
			assert.Equal(t, tt.wantClass, got.Name, "name %q", tt.name)
		}
		assert.Equal(t, tt.name, got.Raw, "name %q", tt.name)
	}
}
