package services

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/c14220110/hospital-backend/internal/staff/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type StaffService struct {
	DB *sql.DB
}

func NewStaffService(db *sql.DB) *StaffService {
	return &StaffService{DB: db}
}

// AuthenticateStaff validates a staff login against the stored bcrypt hash.
func (s *StaffService) AuthenticateStaff(username, password string) (*models.Staff, error) {
	var staff models.Staff
	query := "SELECT id, username, password, name, role FROM staff WHERE username = ?"
	err := s.DB.QueryRow(query, username).Scan(&staff.ID, &staff.Username, &staff.Password, &staff.Name, &staff.Role)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &staff, nil
}
