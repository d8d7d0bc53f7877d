package models

import "strings"

// RoomClass is the normalized room category stored on modern assignment
// rows. The enum column only accepts the five known classes; anything else
// (Emergency, Consultation, ad hoc names) keeps its raw name here but is
// persisted as NULL.
type RoomClass struct {
	Known bool
	Name  string // one of the enum values when Known
	Raw   string // the name as configured on the room type
}

const (
	ClassWard        = "Ward"
	ClassSemiPrivate = "Semi-Private"
	ClassPrivate     = "Private"
	ClassIsolation   = "Isolation"
	ClassICU         = "ICU"
)

// roomClassTable maps normalized substrings to enum values. Order matters:
// "semi-private" must be tried before "private".
var roomClassTable = []struct {
	substr string
	class  string
}{
	{"semi-private", ClassSemiPrivate},
	{"semi private", ClassSemiPrivate},
	{"private", ClassPrivate},
	{"isolation", ClassIsolation},
	{"icu", ClassICU},
	{"intensive", ClassICU},
	{"ward", ClassWard},
}

// ClassifyRoomType normalizes a configured type name into a RoomClass.
func ClassifyRoomType(name string) RoomClass {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, entry := range roomClassTable {
		if strings.Contains(normalized, entry.substr) {
			return RoomClass{Known: true, Name: entry.class, Raw: name}
		}
	}
	return RoomClass{Known: false, Raw: name}
}
