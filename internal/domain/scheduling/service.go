package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/domain/identity"
	"github.com/medbook/api/internal/platform/apperr"
	"github.com/medbook/api/internal/platform/auth"
	"github.com/medbook/api/internal/platform/db"
	"github.com/medbook/api/internal/platform/notification"
)

var (
	ErrPatientsOnly      = apperr.New(apperr.ErrForbidden, "Only patients can book appointments")
	ErrInvalidDatetime   = apperr.New(apperr.ErrInvalidInput, "Invalid datetime format")
	ErrDoctorBooked      = apperr.New(apperr.ErrConflict, "Doctor time slot already booked")
	ErrPatientBooked     = apperr.New(apperr.ErrConflict, "You already have an appointment at this time")
	ErrSlotTaken         = apperr.New(apperr.ErrConflict, "Time slot is no longer available")
	ErrPastBooking       = apperr.New(apperr.ErrInvalidInput, "Cannot book appointments in the past")
	ErrInvalidDoctor     = apperr.New(apperr.ErrNotFound, "Invalid doctor")
	ErrInvalidRole       = apperr.New(apperr.ErrForbidden, "Invalid role")
	ErrNotParticipant    = apperr.New(apperr.ErrForbidden, "Unauthorized")
	ErrNotCancellable    = apperr.New(apperr.ErrInvalidState, "Only scheduled appointments can be cancelled")
	ErrDoctorsOnly       = apperr.New(apperr.ErrForbidden, "Only doctors can update appointment status")
	ErrInvalidStatus     = apperr.New(apperr.ErrInvalidInput, "Invalid status")
	ErrSlotQueryRequired = apperr.New(apperr.ErrInvalidInput, "doctor_id and date are required")
	ErrInvalidDate       = apperr.New(apperr.ErrInvalidInput, "Invalid date format, use YYYY-MM-DD")
)

// Notifier delivers appointment emails. *notification.Mailer satisfies it.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, n notification.AppointmentNotice) error
	AppointmentCancelled(ctx context.Context, n notification.AppointmentNotice) error
}

// BookingRecorder counts booking outcomes.
type BookingRecorder interface {
	RecordBooking(outcome string)
}

// Working hours offered by AvailableSlots: one slot per hour in [9, 17).
const (
	firstSlotHour = 9
	lastSlotHour  = 16
	dateLayout    = "2006-01-02"
)

type Service struct {
	appointments AppointmentRepository
	users        identity.UserRepository
	tx           db.Transactor
	notifier     Notifier
	recorder     BookingRecorder
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(appts AppointmentRepository, users identity.UserRepository, tx db.Transactor,
	notifier Notifier, recorder BookingRecorder, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		users:        users,
		tx:           tx,
		notifier:     notifier,
		recorder:     recorder,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type BookRequest struct {
	DoctorID  string  `json:"doctor_id"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Reason    *string `json:"reason"`
}

// Book creates a scheduled appointment for the calling patient. The conflict
// checks and the insert share one serializable transaction, so of two
// overlapping bookings at most one commits.
func (s *Service) Book(ctx context.Context, caller auth.Principal, req BookRequest) (*Appointment, error) {
	a, err := s.book(ctx, caller, req)
	s.recorder.RecordBooking(bookingOutcome(err))
	return a, err
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case apperr.Status(err) < 500:
		return "rejected"
	}
	return "error"
}

func (s *Service) book(ctx context.Context, caller auth.Principal, req BookRequest) (*Appointment, error) {
	if caller.Role != identity.RolePatient {
		return nil, ErrPatientsOnly
	}
	start, err := ParseTimestamp(req.StartTime)
	if err != nil {
		return nil, ErrInvalidDatetime
	}
	end, err := ParseTimestamp(req.EndTime)
	if err != nil {
		return nil, ErrInvalidDatetime
	}
	// An unparseable id matches no appointment and no doctor.
	doctorID, _ := uuid.Parse(strings.TrimSpace(req.DoctorID))

	a := &Appointment{
		PatientID: caller.ID,
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   end,
		Status:    StatusScheduled,
		Reason:    req.Reason,
	}
	var doctor *identity.User
	err = s.tx.Serializable(ctx, func(ctx context.Context) error {
		busy, err := s.appointments.HasConflict(ctx, PartyDoctor, doctorID, start, end, uuid.Nil)
		if err != nil {
			return err
		}
		if busy {
			return ErrDoctorBooked
		}
		busy, err = s.appointments.HasConflict(ctx, PartyPatient, caller.ID, start, end, uuid.Nil)
		if err != nil {
			return err
		}
		if busy {
			return ErrPatientBooked
		}
		if start.Before(s.now()) {
			return ErrPastBooking
		}
		doctor, err = s.users.GetByID(ctx, doctorID)
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrInvalidDoctor
		}
		if err != nil {
			return err
		}
		if doctor.Role != identity.RoleDoctor {
			return ErrInvalidDoctor
		}
		return s.appointments.Create(ctx, a)
	})
	if db.IsSerializationFailure(err) {
		return nil, ErrSlotTaken
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("patient_id", caller.ID.String()).
		Msg("appointment booked")

	patient, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("confirmation skipped: patient lookup failed")
		return a, nil
	}
	s.notify(ctx, a, patient, doctor, s.notifier.AppointmentConfirmed)
	return a, nil
}

// notify sends an appointment email. Delivery failures are logged and never
// returned.
func (s *Service) notify(ctx context.Context, a *Appointment, patient, doctor *identity.User,
	send func(context.Context, notification.AppointmentNotice) error) {
	n := notification.AppointmentNotice{
		PatientName:  patient.Name,
		PatientEmail: patient.Email,
		DoctorName:   unknownName,
		Start:        a.StartTime,
		End:          a.EndTime,
	}
	if doctor != nil {
		n.DoctorName = doctor.Name
	}
	if err := send(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment email failed")
	}
}

// ListMine returns the caller's appointments as patient or doctor.
func (s *Service) ListMine(ctx context.Context, caller auth.Principal) ([]AppointmentView, error) {
	var (
		appts []*Appointment
		err   error
	)
	switch caller.Role {
	case identity.RolePatient:
		appts, err = s.appointments.ListByPatient(ctx, caller.ID)
	case identity.RoleDoctor:
		appts, err = s.appointments.ListByDoctor(ctx, caller.ID)
	default:
		return nil, ErrInvalidRole
	}
	if err != nil {
		return nil, err
	}
	return s.Views(ctx, appts)
}

// ListAll returns every appointment, newest start first.
func (s *Service) ListAll(ctx context.Context) ([]AppointmentView, error) {
	appts, err := s.appointments.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.Views(ctx, appts)
}

// Views resolves participants for appts with a single user lookup.
func (s *Service) Views(ctx context.Context, appts []*Appointment) ([]AppointmentView, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range appts {
		for _, id := range []uuid.UUID{a.PatientID, a.DoctorID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	users := map[uuid.UUID]*identity.User{}
	if len(ids) > 0 {
		var err error
		if users, err = s.users.GetMany(ctx, ids); err != nil {
			return nil, fmt.Errorf("resolve participants: %w", err)
		}
	}

	views := make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		views = append(views, NewView(a, users))
	}
	return views, nil
}

// Cancel moves a scheduled appointment to cancelled. Only its patient or
// doctor may do so.
func (s *Service) Cancel(ctx context.Context, caller auth.Principal, id uuid.UUID) error {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if caller.ID != a.PatientID && caller.ID != a.DoctorID {
		return ErrNotParticipant
	}
	if a.Status != StatusScheduled {
		return ErrNotCancellable
	}
	changed, err := s.appointments.TransitionStatus(ctx, id, StatusScheduled, StatusCancelled)
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotCancellable
	}
	a.Status = StatusCancelled
	s.logger.Info().Str("appointment_id", id.String()).Str("cancelled_by", caller.ID.String()).Msg("appointment cancelled")

	users, err := s.users.GetMany(ctx, []uuid.UUID{a.PatientID, a.DoctorID})
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", id.String()).Msg("cancellation notice skipped: user lookup failed")
		return nil
	}
	if patient, ok := users[a.PatientID]; ok {
		s.notify(ctx, a, patient, users[a.DoctorID], s.notifier.AppointmentCancelled)
	}
	return nil
}

// SetStatus lets the assigned doctor move an appointment to any state.
func (s *Service) SetStatus(ctx context.Context, caller auth.Principal, id uuid.UUID, status string) (*Appointment, error) {
	if caller.Role != identity.RoleDoctor {
		return nil, ErrDoctorsOnly
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != caller.ID {
		return nil, ErrNotParticipant
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	s.logger.Info().Str("appointment_id", id.String()).Str("status", status).Msg("appointment status updated")
	return a, nil
}

// SlotAvailability lists the free hourly slots of a doctor on one day.
type SlotAvailability struct {
	Date           string    `json:"date"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	AvailableSlots []string  `json:"available_slots"`
}

// AvailableSlots offers each working hour that no scheduled appointment of
// the doctor starts in.
func (s *Service) AvailableSlots(ctx context.Context, doctorID, date string) (*SlotAvailability, error) {
	id, err := uuid.Parse(strings.TrimSpace(doctorID))
	if err != nil || date == "" {
		return nil, ErrSlotQueryRequired
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	starts, err := s.appointments.ScheduledStarts(ctx, id, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	booked := make(map[int]bool, len(starts))
	for _, st := range starts {
		booked[st.Hour()] = true
	}

	slots := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		if !booked[h] {
			slots = append(slots, LocalTime(day.Add(time.Duration(h)*time.Hour)).String())
		}
	}
	return &SlotAvailability{Date: date, DoctorID: id, AvailableSlots: slots}, nil
}

// Stats is the appointment part of the admin dashboard.
type Stats struct {
	Total    int
	Upcoming int
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.appointments.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	upcoming, err := s.appointments.CountUpcoming(ctx, s.now())
	if err != nil {
		return Stats{}, err
	}
	return Stats{Total: total, Upcoming: upcoming}, nil
}
