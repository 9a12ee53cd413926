package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/api/internal/platform/apperr"
)

var ErrAppointmentNotFound = apperr.New(apperr.ErrNotFound, "Appointment not found")

// AppointmentRepository persists appointments. Lists are ordered by start
// time, newest first.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	// TransitionStatus sets status to "to" only while it is still "from" and
	// reports whether the row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	// HasConflict reports whether a scheduled appointment of the party
	// overlaps [start, end). excludeID is ignored when uuid.Nil.
	HasConflict(ctx context.Context, party Party, partyID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
	ListAll(ctx context.Context) ([]*Appointment, error)
	// ScheduledStarts returns start times of the doctor's scheduled
	// appointments with from <= start < to.
	ScheduledStarts(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)
	Count(ctx context.Context) (int, error)
	CountUpcoming(ctx context.Context, since time.Time) (int, error)
}
