// README: Booking store backed by PostgreSQL; status changes are conditional on status and version.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const bookingColumns = `
	id, student_id, driver_id, pickup_location, dropoff_location,
	scheduled_date, scheduled_time, status, status_version,
	notes, rating, feedback, created_at, completed_at`

func (s *Store) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		string(b.ID),
		string(b.StudentID),
		toStringPtr(b.DriverID),
		string(b.PickupLocation),
		string(b.DropoffLocation),
		b.ScheduledDate,
		nullIfEmpty(b.ScheduledTime),
		string(b.Status),
		b.StatusVersion,
		b.Notes,
		b.Rating,
		b.Feedback,
		b.CreatedAt,
		b.CompletedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Update writes the mutable fields of b. driver_id, completed_at and rating
// are set-once columns, so an existing value is never overwritten.
func (s *Store) Update(ctx context.Context, b *Booking, from Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    driver_id = COALESCE(driver_id, $2),
		    completed_at = COALESCE(completed_at, $3),
		    rating = COALESCE(rating, $4),
		    feedback = $5
		WHERE id = $6 AND status = $7 AND status_version = $8`,
		string(b.Status),
		toStringPtr(b.DriverID),
		b.CompletedAt,
		b.Rating,
		b.Feedback,
		string(b.ID),
		string(from),
		b.StatusVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	b.StatusVersion++
	return true, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO booking_state_events (
			booking_id, action, from_status, to_status, actor_role, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		string(e.BookingID),
		string(e.Action),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.ActorRole),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	).Scan(&e.ID)
}

func (s *Store) ListForDriver(ctx context.Context, driverID types.ID) ([]*Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE (driver_id = $1 AND status = 'in-progress')
		   OR (driver_id IS NULL AND status = 'pending')
		ORDER BY created_at ASC`, string(driverID))
}

func (s *Store) CountForDriver(ctx context.Context, driverID types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE (driver_id = $1 AND status = 'in-progress')
		   OR (driver_id IS NULL AND status = 'pending')`, string(driverID),
	).Scan(&n)
	return n, err
}

func (s *Store) ListByStudent(ctx context.Context, studentID types.ID, activeOnly bool) ([]*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE student_id = $1`
	if activeOnly {
		query += ` AND status IN ('pending', 'in-progress')`
	}
	query += ` ORDER BY created_at DESC`
	return s.list(ctx, query, string(studentID))
}

func (s *Store) ListCompletedByDriver(ctx context.Context, driverID types.ID) ([]*Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE driver_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC`, string(driverID))
}

func (s *Store) CompletedRatedByDriver(ctx context.Context, driverID types.ID) ([]*Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE driver_id = $1 AND status = 'completed' AND rating IS NOT NULL
		ORDER BY completed_at ASC`, string(driverID))
}

func (s *Store) DriverStats(ctx context.Context, driverID types.ID, since time.Time) (DriverStats, error) {
	var st DriverStats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE completed_at >= $2),
		       COALESCE(AVG(rating)::float8, 0),
		       COUNT(rating)
		FROM bookings
		WHERE driver_id = $1 AND status = 'completed'`, string(driverID), since,
	).Scan(&st.TotalCompleted, &st.CompletedToday, &st.AverageRating, &st.RatedCount)
	return st, err
}

func (s *Store) StudentStats(ctx context.Context, studentID types.ID) (StudentStats, error) {
	var st StudentStats
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('pending', 'in-progress')),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM bookings
		WHERE student_id = $1`, string(studentID),
	).Scan(&st.Total, &st.Active, &st.Completed, &st.Cancelled)
	return st, err
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var driverID, scheduledTime sql.NullString
	var rating sql.NullInt32
	var completedAt sql.NullTime

	err := row.Scan(
		&b.ID, &b.StudentID, &driverID, &b.PickupLocation, &b.DropoffLocation,
		&b.ScheduledDate, &scheduledTime, &b.Status, &b.StatusVersion,
		&b.Notes, &rating, &b.Feedback, &b.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		d := types.ID(driverID.String)
		b.DriverID = &d
	}
	b.ScheduledTime = scheduledTime.String
	if rating.Valid {
		r := int(rating.Int32)
		b.Rating = &r
	}
	b.CompletedAt = toTimePtr(completedAt)
	return &b, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
