package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/platform/apperr"
	"github.com/medbook/api/internal/platform/auth"
)

const minPasswordLen = 6

var (
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "Invalid credentials")
	ErrMissingFields      = apperr.New(apperr.ErrInvalidInput, "Missing required fields")
	ErrPatientOnly        = apperr.New(apperr.ErrForbidden, "Only patient registration is allowed. Doctors must be created by admin.")
)

// AuthRecorder counts register and login outcomes.
type AuthRecorder interface {
	RecordAuth(method string, ok bool)
}

type Service struct {
	users    UserRepository
	tokens   *auth.TokenIssuer
	recorder AuthRecorder
	logger   zerolog.Logger
}

func NewService(users UserRepository, tokens *auth.TokenIssuer, recorder AuthRecorder, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, recorder: recorder, logger: logger}
}

type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	Age      *int    `json:"age"`
	Gender   *string `json:"gender"`
}

// Register creates a patient account. Other roles are provisioned by admins.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	u, err := s.register(ctx, req)
	s.recorder.RecordAuth("register", err == nil)
	return u, err
}

func (s *Service) register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Role != "" && req.Role != RolePatient {
		return nil, ErrPatientOnly
	}
	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RolePatient,
		Patient:      &PatientProfile{Age: req.Age, Gender: req.Gender},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("patient registered")
	return u, nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	AccessToken string     `json:"access_token"`
	User        PublicUser `json:"user"`
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	res, err := s.login(ctx, req)
	s.recorder.RecordAuth("login", err == nil)
	return res, err
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Role, u.Name)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, User: u.Public()}, nil
}

// ListDoctors returns the public doctor directory.
func (s *Service) ListDoctors(ctx context.Context) ([]DoctorListing, error) {
	doctors, err := s.users.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DoctorListing, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, d.Listing())
	}
	return out, nil
}

// AdminBootstrap holds the inputs of the create-admin command.
type AdminBootstrap struct {
	Email    string
	Password string
	Name     string
	// Promote converts an existing non-admin account instead of failing.
	Promote bool
}

// BootstrapAdmin creates the first admin account, or promotes an existing
// account when asked to. It reports whether an existing user was promoted.
func (s *Service) BootstrapAdmin(ctx context.Context, in AdminBootstrap) (promoted bool, err error) {
	email := NormalizeEmail(in.Email)
	if !ValidEmail(email) {
		return false, apperr.New(apperr.ErrInvalidInput, "Invalid email format")
	}
	if len(in.Password) < minPasswordLen {
		return false, apperr.New(apperr.ErrInvalidInput, fmt.Sprintf("Password must be at least %d characters long", minPasswordLen))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Admin"
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		u := &User{Name: name, Email: email, PasswordHash: hash, Role: RoleAdmin}
		if err := s.users.Create(ctx, u); err != nil {
			return false, err
		}
		s.logger.Info().Str("user_id", u.ID.String()).Msg("admin created")
		return false, nil
	case err != nil:
		return false, err
	case existing.Role == RoleAdmin:
		return false, apperr.New(apperr.ErrConflict, fmt.Sprintf("Admin user with email '%s' already exists", email))
	case !in.Promote:
		return false, apperr.New(apperr.ErrConflict,
			fmt.Sprintf("User with email '%s' exists but is not an admin (role: %s)", email, existing.Role))
	}

	existing.Role = RoleAdmin
	existing.PasswordHash = hash
	existing.Doctor = nil
	if err := s.users.Update(ctx, existing); err != nil {
		return false, err
	}
	s.logger.Info().Str("user_id", existing.ID.String()).Msg("user promoted to admin")
	return true, nil
}
