// README: User store backed by PostgreSQL.
package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, role, name, email, rating, created_at, updated_at
		FROM users WHERE id = $1`, string(id),
	).Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.Rating, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveProfile inserts or updates name and email; role and rating are never changed here.
func (s *Store) SaveProfile(ctx context.Context, u *User) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO users (id, role, name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = NOW()
		RETURNING role, rating, created_at, updated_at`,
		string(u.ID), string(u.Role), u.Name, u.Email,
	).Scan(&u.Role, &u.Rating, &u.CreatedAt, &u.UpdatedAt)
}

// SetRating upserts the driver row so a first rating needs no prior profile.
func (s *Store) SetRating(ctx context.Context, driverID types.ID, value float64) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO users (id, role, rating)
		VALUES ($1, 'driver', $2)
		ON CONFLICT (id) DO UPDATE
		SET rating = EXCLUDED.rating, updated_at = NOW()
		WHERE users.role = 'driver'`,
		string(driverID), value,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDriver
	}
	return nil
}
