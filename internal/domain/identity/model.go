package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "admin"
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time

	Patient *PatientProfile
	Doctor  *DoctorProfile
}

type PatientProfile struct {
	Age    *int
	Gender *string
}

type DoctorProfile struct {
	Specialty       string
	ExperienceYears int
	Rating          float64
}

// Specialty returns the doctor's specialty or nil when there is no profile.
func (u *User) Specialty() *string {
	if u == nil || u.Doctor == nil {
		return nil
	}
	s := u.Doctor.Specialty
	return &s
}

// PublicUser is the login response view of a user.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
	Email string    `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Role: u.Role, Email: u.Email}
}

// DoctorListing is an entry of the public doctor directory.
type DoctorListing struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Specialty *string   `json:"specialty"`
	Rating    *float64  `json:"rating"`
}

func (u *User) Listing() DoctorListing {
	l := DoctorListing{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.Doctor != nil {
		spec, rating := u.Doctor.Specialty, u.Doctor.Rating
		l.Specialty, l.Rating = &spec, &rating
	}
	return l
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail accepts a single address whose domain contains a dot.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	_, domain, ok := strings.Cut(email, "@")
	return ok && strings.Contains(domain, ".")
}

// ValidRole reports whether role is one of the three account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePatient, RoleDoctor:
		return true
	}
	return false
}
