// README: Persistence contract for bookings; Postgres and in-memory implementations satisfy it.
package booking

import (
	"context"
	"time"

	"campusride/internal/types"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	// Update persists b only if the stored row is still in status from at
	// version b.StatusVersion. It reports false when another writer won.
	// On success b.StatusVersion is advanced.
	Update(ctx context.Context, b *Booking, from Status) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error

	ListForDriver(ctx context.Context, driverID types.ID) ([]*Booking, error)
	CountForDriver(ctx context.Context, driverID types.ID) (int, error)
	ListByStudent(ctx context.Context, studentID types.ID, activeOnly bool) ([]*Booking, error)
	ListCompletedByDriver(ctx context.Context, driverID types.ID) ([]*Booking, error)
	CompletedRatedByDriver(ctx context.Context, driverID types.ID) ([]*Booking, error)
	DriverStats(ctx context.Context, driverID types.ID, since time.Time) (DriverStats, error)
	StudentStats(ctx context.Context, studentID types.ID) (StudentStats, error)
}
