// README: Rating aggregator; recomputes a driver's mean rating over all completed, rated bookings.
package rating

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"campusride/internal/modules/booking"
	"campusride/internal/types"
)

// BookingSource lists a driver's completed bookings that carry a rating.
type BookingSource interface {
	CompletedRatedByDriver(ctx context.Context, driverID types.ID) ([]*booking.Booking, error)
}

// DriverRatingWriter stores the derived rating on the driver's user record.
type DriverRatingWriter interface {
	SetRating(ctx context.Context, driverID types.ID, value float64) error
}

type Result struct {
	DriverID types.ID
	Average  float64
	Count    int
	// Updated is false when the driver had no qualifying bookings and the
	// stored rating was left untouched.
	Updated bool
}

type Service struct {
	source BookingSource
	writer DriverRatingWriter
	log    *zap.Logger

	mu      sync.Mutex
	pending map[types.ID]struct{}
}

func NewService(source BookingSource, writer DriverRatingWriter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{source: source, writer: writer, log: log, pending: map[types.ID]struct{}{}}
}

// Recompute reads every qualifying booking at call time and writes their mean.
// It never applies increments, so repeated calls converge on the same value.
func (s *Service) Recompute(ctx context.Context, driverID types.ID) (Result, error) {
	res := Result{DriverID: driverID}
	bookings, err := s.source.CompletedRatedByDriver(ctx, driverID)
	if err != nil {
		return res, fmt.Errorf("load rated bookings: %w", err)
	}

	sum := 0
	for _, b := range bookings {
		if b.Status != booking.StatusCompleted || b.Rating == nil || !b.AssignedTo(driverID) {
			continue
		}
		sum += *b.Rating
		res.Count++
	}
	if res.Count == 0 {
		s.log.Debug("no rated bookings; driver rating unchanged", zap.String("driver_id", driverID.String()))
		return res, nil
	}

	res.Average = float64(sum) / float64(res.Count)
	if err := s.writer.SetRating(ctx, driverID, res.Average); err != nil {
		return res, fmt.Errorf("write driver rating: %w", err)
	}
	res.Updated = true

	s.log.Info("driver rating recomputed",
		zap.String("driver_id", driverID.String()),
		zap.Float64("rating", res.Average),
		zap.Int("rated_bookings", res.Count),
	)
	return res, nil
}

// RecomputeDriverRating satisfies booking.Aggregator. A failed driver stays
// queued for RunRetryLoop until a recompute succeeds.
func (s *Service) RecomputeDriverRating(ctx context.Context, driverID types.ID) error {
	_, err := s.Recompute(ctx, driverID)
	s.mu.Lock()
	if err != nil {
		s.pending[driverID] = struct{}{}
	} else {
		delete(s.pending, driverID)
	}
	s.mu.Unlock()
	return err
}

// Pending lists drivers whose last recompute failed.
func (s *Service) Pending() []types.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ID, 0, len(s.pending))
	for id := range s.pending {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RetryPending recomputes every queued driver once and returns how many are still failing.
func (s *Service) RetryPending(ctx context.Context) int {
	failed := 0
	for _, id := range s.Pending() {
		if err := s.RecomputeDriverRating(ctx, id); err != nil {
			failed++
			s.log.Warn("driver rating retry failed", zap.String("driver_id", id.String()), zap.Error(err))
		}
	}
	return failed
}

// RunRetryLoop retries failed recomputes every interval until ctx is done.
func (s *Service) RunRetryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RetryPending(ctx)
		}
	}
}
