package admin

import (
	"github.com/google/uuid"

	"github.com/medbook/api/internal/domain/identity"
)

type CreateDoctorRequest struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	Specialty       string   `json:"specialty"`
	ExperienceYears *int     `json:"experience_years"`
	Rating          *float64 `json:"rating"`
}

// UpdateDoctorRequest is a partial update. Nil fields are left unchanged.
type UpdateDoctorRequest struct {
	Name            *string  `json:"name"`
	Email           *string  `json:"email"`
	Password        *string  `json:"password"`
	Specialty       *string  `json:"specialty"`
	ExperienceYears *int     `json:"experience_years"`
	Rating          *float64 `json:"rating"`
}

// DoctorSummary is returned after a doctor is created or updated.
type DoctorSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Specialty *string   `json:"specialty"`
}

func summarize(u *identity.User) DoctorSummary {
	return DoctorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Specialty: u.Specialty()}
}

// DoctorRecord is a row of the admin doctor listing.
type DoctorRecord struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Specialty       *string   `json:"specialty"`
	ExperienceYears int       `json:"experience_years"`
	Rating          float64   `json:"rating"`
}

func record(u *identity.User) DoctorRecord {
	r := DoctorRecord{ID: u.ID, Name: u.Name, Email: u.Email, Specialty: u.Specialty()}
	if u.Doctor != nil {
		r.ExperienceYears = u.Doctor.ExperienceYears
		r.Rating = u.Doctor.Rating
	}
	return r
}

type Analytics struct {
	TotalDoctors         int `json:"total_doctors"`
	TotalPatients        int `json:"total_patients"`
	TotalAppointments    int `json:"total_appointments"`
	UpcomingAppointments int `json:"upcoming_appointments"`
}
