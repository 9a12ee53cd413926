package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/api/internal/platform/db"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userSelect = `SELECT u.id, u.name, u.email, u.password_hash, u.role, u.created_at,
	pp.user_id IS NOT NULL, pp.age, pp.gender,
	dp.user_id IS NOT NULL, dp.specialty, dp.experience_years, dp.rating
FROM users u
LEFT JOIN patient_profiles pp ON pp.user_id = u.id
LEFT JOIN doctor_profiles dp ON dp.user_id = u.id`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                     User
		hasPatient, hasDoctor bool
		age                   *int
		gender                *string
		specialty             *string
		experience            *int
		rating                *float64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt,
		&hasPatient, &age, &gender,
		&hasDoctor, &specialty, &experience, &rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if hasPatient {
		u.Patient = &PatientProfile{Age: age, Gender: gender}
	}
	if hasDoctor {
		d := &DoctorProfile{}
		if specialty != nil {
			d.Specialty = *specialty
		}
		if experience != nil {
			d.ExperienceYears = *experience
		}
		if rating != nil {
			d.Rating = *rating
		}
		u.Doctor = d
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return db.WithTx(ctx, r.pool, pgx.TxOptions{}, func(ctx context.Context) error {
		q := r.conn(ctx)
		err := q.QueryRow(ctx, `
			INSERT INTO users (id, name, email, password_hash, role)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		if p := u.Patient; p != nil {
			if _, err := q.Exec(ctx, `INSERT INTO patient_profiles (user_id, age, gender) VALUES ($1, $2, $3)`,
				u.ID, p.Age, p.Gender); err != nil {
				return fmt.Errorf("insert patient profile: %w", err)
			}
		}
		if d := u.Doctor; d != nil {
			if _, err := q.Exec(ctx, `
				INSERT INTO doctor_profiles (user_id, specialty, experience_years, rating)
				VALUES ($1, $2, $3, $4)`,
				u.ID, d.Specialty, d.ExperienceYears, d.Rating); err != nil {
				return fmt.Errorf("insert doctor profile: %w", err)
			}
		}
		return nil
	})
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, userSelect+` WHERE u.email = $1`, email))
}

func (r *userRepoPG) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
	out := make(map[uuid.UUID]*User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := r.list(ctx, userSelect+` WHERE u.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepoPG) ListDoctors(ctx context.Context) ([]*User, error) {
	return r.list(ctx, userSelect+` WHERE u.role = $1 AND dp.user_id IS NOT NULL ORDER BY u.name, u.id`, RoleDoctor)
}

func (r *userRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	if !ValidRole(u.Role) {
		return fmt.Errorf("update user: invalid role %q", u.Role)
	}
	return db.WithTx(ctx, r.pool, pgx.TxOptions{}, func(ctx context.Context) error {
		q := r.conn(ctx)
		tag, err := q.Exec(ctx, `
			UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5
			WHERE id = $1`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		if d := u.Doctor; d != nil {
			if _, err := q.Exec(ctx, `
				UPDATE doctor_profiles SET specialty = $2, experience_years = $3, rating = $4
				WHERE user_id = $1`,
				u.ID, d.Specialty, d.ExperienceYears, d.Rating); err != nil {
				return fmt.Errorf("update doctor profile: %w", err)
			}
		}
		if u.Role != RoleDoctor {
			if _, err := q.Exec(ctx, `DELETE FROM doctor_profiles WHERE user_id = $1`, u.ID); err != nil {
				return fmt.Errorf("drop doctor profile: %w", err)
			}
		}
		if u.Role != RolePatient {
			if _, err := q.Exec(ctx, `DELETE FROM patient_profiles WHERE user_id = $1`, u.ID); err != nil {
				return fmt.Errorf("drop patient profile: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the user; profiles go with it through ON DELETE CASCADE.
func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepoPG) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	return n, err
}
