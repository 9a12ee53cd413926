package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/domain/identity"
	"github.com/medbook/api/internal/domain/scheduling"
	"github.com/medbook/api/internal/platform/apperr"
	"github.com/medbook/api/internal/platform/auth"
)

var (
	ErrDoctorNotFound = apperr.New(apperr.ErrNotFound, "Doctor not found")
	ErrEmailInUse     = apperr.New(apperr.ErrInvalidInput, "Email already in use")
)

// Appointments is the scheduling view the dashboard needs.
// *scheduling.Service satisfies it.
type Appointments interface {
	ListAll(ctx context.Context) ([]scheduling.AppointmentView, error)
	Stats(ctx context.Context) (scheduling.Stats, error)
}

type Service struct {
	users        identity.UserRepository
	appointments Appointments
	logger       zerolog.Logger
}

func NewService(users identity.UserRepository, appts Appointments, logger zerolog.Logger) *Service {
	return &Service{users: users, appointments: appts, logger: logger}
}

func (s *Service) CreateDoctor(ctx context.Context, req CreateDoctorRequest) (*identity.User, error) {
	name := strings.TrimSpace(req.Name)
	email := identity.NormalizeEmail(req.Email)
	specialty := strings.TrimSpace(req.Specialty)
	if name == "" || email == "" || req.Password == "" || specialty == "" {
		return nil, identity.ErrMissingFields
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	profile := &identity.DoctorProfile{Specialty: specialty}
	if req.ExperienceYears != nil {
		profile.ExperienceYears = *req.ExperienceYears
	}
	if req.Rating != nil {
		profile.Rating = *req.Rating
	}
	u := &identity.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         identity.RoleDoctor,
		Doctor:       profile,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", u.ID.String()).Str("specialty", specialty).Msg("doctor created")
	return u, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]DoctorRecord, error) {
	doctors, err := s.users.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DoctorRecord, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, record(d))
	}
	return out, nil
}

func (s *Service) doctor(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role != identity.RoleDoctor {
		return nil, ErrDoctorNotFound
	}
	return u, nil
}

// UpdateDoctor applies the non-nil fields of req. Profile fields are ignored
// for a doctor account without a profile.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req UpdateDoctorRequest) (*identity.User, error) {
	u, err := s.doctor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := identity.NormalizeEmail(*req.Email)
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != u.ID:
			return nil, ErrEmailInUse
		case err != nil && !errors.Is(err, identity.ErrUserNotFound):
			return nil, err
		}
		u.Email = email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}
	if d := u.Doctor; d != nil {
		if req.Specialty != nil {
			d.Specialty = *req.Specialty
		}
		if req.ExperienceYears != nil {
			d.ExperienceYears = *req.ExperienceYears
		}
		if req.Rating != nil {
			d.Rating = *req.Rating
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		// Lost a race with another account taking the address.
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	s.logger.Info().Str("doctor_id", id.String()).Msg("doctor updated")
	return u, nil
}

// DeleteDoctor removes the account and its profile. Appointments are kept
// and list the doctor as unknown.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	if _, err := s.doctor(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}
	s.logger.Info().Str("doctor_id", id.String()).Msg("doctor deleted")
	return nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]scheduling.AppointmentView, error) {
	return s.appointments.ListAll(ctx)
}

func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	doctors, err := s.users.CountByRole(ctx, identity.RoleDoctor)
	if err != nil {
		return nil, err
	}
	patients, err := s.users.CountByRole(ctx, identity.RolePatient)
	if err != nil {
		return nil, err
	}
	stats, err := s.appointments.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Analytics{
		TotalDoctors:         doctors,
		TotalPatients:        patients,
		TotalAppointments:    stats.Total,
		UpcomingAppointments: stats.Upcoming,
	}, nil
}
