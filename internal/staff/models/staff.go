package models

// Staff is a hospital staff account able to log into the backend.
type Staff struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Password string `json:"-" db:"password"`
	Name     string `json:"name" db:"name"`
	Role     string `json:"role" db:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
