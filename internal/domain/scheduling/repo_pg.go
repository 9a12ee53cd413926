package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/api/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, patient_id, doctor_id, start_time, end_time, status, reason, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartTime, &a.EndTime, &a.Status, &a.Reason, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, start_time, end_time, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		a.ID, a.PatientID, a.DoctorID, a.StartTime, a.EndTime, a.Status, a.Reason,
	).Scan(&a.CreatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func partyColumn(p Party) (string, error) {
	switch p {
	case PartyDoctor:
		return "doctor_id", nil
	case PartyPatient:
		return "patient_id", nil
	}
	return "", fmt.Errorf("unknown party %q", p)
}

func (r *appointmentRepoPG) HasConflict(ctx context.Context, party Party, partyID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	col, err := partyColumn(party)
	if err != nil {
		return false, err
	}
	var exists bool
	err = r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE `+col+` = $1
			  AND status = 'scheduled'
			  AND start_time < $3
			  AND end_time > $2
			  AND ($4::uuid IS NULL OR id <> $4)
		)`, partyID, start, end, nullableID(excludeID)).Scan(&exists)
	return exists, err
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointments `+where+` ORDER BY start_time DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return r.list(ctx, `WHERE doctor_id = $1`, doctorID)
}

func (r *appointmentRepoPG) ListAll(ctx context.Context) ([]*Appointment, error) {
	return r.list(ctx, ``)
}

func (r *appointmentRepoPG) ScheduledStarts(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT start_time FROM appointments
		WHERE doctor_id = $1 AND status = 'scheduled'
		  AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func (r *appointmentRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) CountUpcoming(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE status = 'scheduled' AND start_time >= $1`, since).Scan(&n)
	return n, err
}
