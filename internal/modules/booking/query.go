// README: Point-in-time booking queries for driver and student dashboards.
package booking

import (
	"context"
	"time"

	"github.com/jinzhu/now"

	"campusride/internal/types"
)

// ListForDriver returns unassigned pending bookings plus the driver's own in-progress ones.
func (s *Service) ListForDriver(ctx context.Context, actor types.Actor) ([]*Booking, error) {
	if actor.Role != types.RoleDriver {
		return nil, forbiddenf("only drivers can list available bookings")
	}
	return s.repo.ListForDriver(ctx, actor.ID)
}

func (s *Service) CountForDriver(ctx context.Context, actor types.Actor) (int, error) {
	if actor.Role != types.RoleDriver {
		return 0, forbiddenf("only drivers can count available bookings")
	}
	return s.repo.CountForDriver(ctx, actor.ID)
}

func (s *Service) ListCompletedByDriver(ctx context.Context, actor types.Actor) ([]*Booking, error) {
	if actor.Role != types.RoleDriver {
		return nil, forbiddenf("only drivers have completed trips")
	}
	return s.repo.ListCompletedByDriver(ctx, actor.ID)
}

func (s *Service) ListByStudent(ctx context.Context, actor types.Actor, activeOnly bool) ([]*Booking, error) {
	if actor.Role != types.RoleStudent {
		return nil, forbiddenf("only students have booking history")
	}
	return s.repo.ListByStudent(ctx, actor.ID, activeOnly)
}

// DriverStats counts today's completions from the start of the current local day.
func (s *Service) DriverStats(ctx context.Context, actor types.Actor) (DriverStats, error) {
	if actor.Role != types.RoleDriver {
		return DriverStats{}, forbiddenf("only drivers have driver statistics")
	}
	return s.repo.DriverStats(ctx, actor.ID, startOfDay(s.now()))
}

func (s *Service) StudentStats(ctx context.Context, actor types.Actor) (StudentStats, error) {
	if actor.Role != types.RoleStudent {
		return StudentStats{}, forbiddenf("only students have student statistics")
	}
	return s.repo.StudentStats(ctx, actor.ID)
}

func startOfDay(t time.Time) time.Time {
	return now.With(t.Local()).BeginningOfDay()
}
