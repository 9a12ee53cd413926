package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/domain/identity"
	"github.com/medbook/api/internal/platform/auth"
	"github.com/medbook/api/internal/platform/notification"
)

type mockApptRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	c := *a
	m.appts[a.ID] = &c
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	c := *a
	return &c, nil
}

func (m *mockApptRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	return nil
}

func (m *mockApptRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *mockApptRepo) HasConflict(_ context.Context, party Party, partyID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.Status != StatusScheduled || a.ID == excludeID {
			continue
		}
		owner := a.DoctorID
		if party == PartyPatient {
			owner = a.PatientID
		}
		if owner == partyID && a.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApptRepo) filter(keep func(*Appointment) bool) []*Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if keep(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return m.filter(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return m.filter(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (m *mockApptRepo) ListAll(_ context.Context) ([]*Appointment, error) {
	return m.filter(func(*Appointment) bool { return true }), nil
}

func (m *mockApptRepo) ScheduledStarts(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, a := range m.filter(func(a *Appointment) bool {
		return a.DoctorID == doctorID && a.Status == StatusScheduled &&
			!a.StartTime.Before(from) && a.StartTime.Before(to)
	}) {
		out = append(out, a.StartTime)
	}
	return out, nil
}

func (m *mockApptRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appts), nil
}

func (m *mockApptRepo) CountUpcoming(_ context.Context, since time.Time) (int, error) {
	return len(m.filter(func(a *Appointment) bool {
		return a.Status == StatusScheduled && !a.StartTime.Before(since)
	})), nil
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*identity.User
}

func (m *mockUserRepo) add(u *identity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *mockUserRepo) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *mockUserRepo) Create(_ context.Context, u *identity.User) error {
	m.add(u)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockUserRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]*identity.User)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *mockUserRepo) ListDoctors(context.Context) ([]*identity.User, error) { return nil, nil }

func (m *mockUserRepo) Update(_ context.Context, u *identity.User) error {
	m.add(u)
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.remove(id)
	return nil
}

func (m *mockUserRepo) CountByRole(context.Context, string) (int, error) { return 0, nil }

// inlineTx runs the function directly; err, when set, replaces its result.
type inlineTx struct{ err error }

func (t inlineTx) Serializable(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return t.err
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) RecordBooking(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return ""
	}
	return r.outcomes[len(r.outcomes)-1]
}

// fixedNow is the service clock in tests: 2030-01-01 08:00 UTC.
var fixedNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	svc     *Service
	appts   *mockApptRepo
	users   *mockUserRepo
	mail    *notification.MockEmailSender
	rec     *outcomeRecorder
	patient auth.Principal
	other   auth.Principal
	doctor  auth.Principal
	admin   auth.Principal
}

func newTestEnv() *testEnv {
	env := &testEnv{
		appts: newMockApptRepo(),
		users: &mockUserRepo{users: make(map[uuid.UUID]*identity.User)},
		mail:  &notification.MockEmailSender{},
		rec:   &outcomeRecorder{},
	}
	mailer := notification.NewMailer(env.mail, notification.NewTemplateEngine(), notification.WithRetry(1, 0))
	env.svc = NewService(env.appts, env.users, inlineTx{}, mailer, env.rec, zerolog.Nop())
	env.svc.now = func() time.Time { return fixedNow }

	env.patient = env.addUser("Pat", "pat@example.com", identity.RolePatient)
	env.other = env.addUser("Olive", "olive@example.com", identity.RolePatient)
	env.doctor = env.addUser("House", "house@example.com", identity.RoleDoctor)
	env.admin = env.addUser("Root", "root@example.com", identity.RoleAdmin)
	return env
}

func (env *testEnv) addUser(name, email, role string) auth.Principal {
	u := &identity.User{ID: uuid.New(), Name: name, Email: email, Role: role}
	if role == identity.RoleDoctor {
		u.Doctor = &identity.DoctorProfile{Specialty: "Cardiologist"}
	}
	env.users.add(u)
	return auth.Principal{ID: u.ID, Role: role, Name: name}
}

func (env *testEnv) book(p auth.Principal, start, end string) (*Appointment, error) {
	return env.svc.Book(context.Background(), p, BookRequest{
		DoctorID:  env.doctor.ID.String(),
		StartTime: start,
		EndTime:   end,
	})
}

func isErr(err, target error) bool { return errors.Is(err, target) }
