package utils

import (
	"strings"

	"github.com/google/uuid"
)

// CSRFPair is echoed in mutating JSON responses so the client can refresh
// the token it submits with its next form post.
type CSRFPair struct {
	Name  string `json:"csrf_name"`
	Token string `json:"csrf_token"`
}

func NewCSRFPair() CSRFPair {
	return CSRFPair{
		Name:  "csrf_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Token: uuid.NewString(),
	}
}
