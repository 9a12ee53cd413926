package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook/api/internal/domain/identity"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is one of the three appointment states.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment times are naive wall-clock values stored in UTC.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Reason    *string
	CreatedAt time.Time
}

// Party selects the participant column a conflict check runs against.
type Party string

const (
	PartyDoctor  Party = "doctor"
	PartyPatient Party = "patient"
)

// Overlaps reports whether a occupies any part of [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}

// LocalTime renders a naive timestamp without a zone suffix.
type LocalTime time.Time

const (
	localLayout       = "2006-01-02T15:04:05"
	localLayoutMicros = "2006-01-02T15:04:05.000000"
)

func (t LocalTime) String() string {
	tt := time.Time(t)
	if tt.Nanosecond()/int(time.Microsecond) != 0 {
		return tt.Format(localLayoutMicros)
	}
	return tt.Format(localLayout)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// PatientRef is the patient side of an appointment view. ID and Email are
// null when the account no longer exists.
type PatientRef struct {
	ID    *uuid.UUID `json:"id"`
	Name  string     `json:"name"`
	Email *string    `json:"email"`
}

type DoctorRef struct {
	ID        *uuid.UUID `json:"id"`
	Name      string     `json:"name"`
	Specialty *string    `json:"specialty"`
}

// AppointmentView is the listing shape shared by patients, doctors and admins.
type AppointmentView struct {
	ID        uuid.UUID  `json:"id"`
	Patient   PatientRef `json:"patient"`
	Doctor    DoctorRef  `json:"doctor"`
	StartTime LocalTime  `json:"start_time"`
	EndTime   LocalTime  `json:"end_time"`
	Status    string     `json:"status"`
	Reason    *string    `json:"reason"`
	CreatedAt *LocalTime `json:"created_at"`
}

const unknownName = "Unknown"

// NewView joins a with its participants. users may miss either of them.
func NewView(a *Appointment, users map[uuid.UUID]*identity.User) AppointmentView {
	v := AppointmentView{
		ID:        a.ID,
		Patient:   PatientRef{Name: unknownName},
		Doctor:    DoctorRef{Name: unknownName},
		StartTime: LocalTime(a.StartTime),
		EndTime:   LocalTime(a.EndTime),
		Status:    a.Status,
		Reason:    a.Reason,
	}
	if !a.CreatedAt.IsZero() {
		created := LocalTime(a.CreatedAt)
		v.CreatedAt = &created
	}
	if p, ok := users[a.PatientID]; ok {
		id, email := p.ID, p.Email
		v.Patient = PatientRef{ID: &id, Name: p.Name, Email: &email}
	}
	if d, ok := users[a.DoctorID]; ok {
		id := d.ID
		v.Doctor = DoctorRef{ID: &id, Name: d.Name, Specialty: d.Specialty()}
	}
	return v
}

// Booked is the summary returned after a successful booking.
type Booked struct {
	ID        uuid.UUID `json:"id"`
	StartTime LocalTime `json:"start_time"`
	EndTime   LocalTime `json:"end_time"`
	Status    string    `json:"status"`
}

func (a *Appointment) Booked() Booked {
	return Booked{ID: a.ID, StartTime: LocalTime(a.StartTime), EndTime: LocalTime(a.EndTime), Status: a.Status}
}
