// README: Booking service runs lifecycle transitions against the repository with status compare-and-swap.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusride/internal/types"
)

// Aggregator recomputes a driver's average rating from scratch.
type Aggregator interface {
	RecomputeDriverRating(ctx context.Context, driverID types.ID) error
}

// Notifier fans a committed transition out to interested parties.
type Notifier interface {
	Publish(ctx context.Context, e Event, b *Booking) error
}

type Service struct {
	repo       Repository
	aggregator Aggregator
	notifier   Notifier
	log        *zap.Logger
	now        func() time.Time
	newID      func() types.ID
}

func NewService(repo Repository, aggregator Aggregator, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		aggregator: aggregator,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
		newID:      func() types.ID { return types.ID(uuid.NewString()) },
	}
}

type CreateCommand struct {
	Actor types.Actor
	Input CreateInput
}

type AcceptCommand struct {
	BookingID types.ID
	Actor     types.Actor
}

type CompleteCommand struct {
	BookingID types.ID
	Actor     types.Actor
}

type CancelCommand struct {
	BookingID types.ID
	Actor     types.Actor
}

type RateCommand struct {
	BookingID types.ID
	Actor     types.Actor
	Input     RateInput
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	b, err := NewBooking(s.newID(), cmd.Actor, cmd.Input, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.committed(ctx, ActionCreate, StatusNone, b, cmd.Actor)
	return b, nil
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Booking, error) {
	return s.transition(ctx, ActionAccept, cmd.BookingID, cmd.Actor, func(b *Booking) (*Booking, error) {
		return Accept(b, cmd.Actor)
	})
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Booking, error) {
	return s.transition(ctx, ActionComplete, cmd.BookingID, cmd.Actor, func(b *Booking) (*Booking, error) {
		return Complete(b, cmd.Actor, s.now().UTC())
	})
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Booking, error) {
	return s.transition(ctx, ActionCancel, cmd.BookingID, cmd.Actor, func(b *Booking) (*Booking, error) {
		return Cancel(b, cmd.Actor)
	})
}

// Rate stores the rating and then recomputes the driver's average as a
// separate step. When only the recompute fails the stored booking is returned
// together with an *AggregationError.
func (s *Service) Rate(ctx context.Context, cmd RateCommand) (*Booking, error) {
	value, err := ValidateRating(cmd.Input)
	if err != nil {
		return nil, err
	}
	b, err := s.transition(ctx, ActionRate, cmd.BookingID, cmd.Actor, func(b *Booking) (*Booking, error) {
		return Rate(b, cmd.Actor, value, cmd.Input.Feedback)
	})
	if err != nil {
		return nil, err
	}
	if err := s.RecomputeDriverRating(ctx, *b.DriverID); err != nil {
		return b, err
	}
	return b, nil
}

// RecomputeDriverRating runs the aggregation step on its own so a failed
// recompute after Rate can be retried.
func (s *Service) RecomputeDriverRating(ctx context.Context, driverID types.ID) error {
	if s.aggregator == nil {
		return nil
	}
	if err := s.aggregator.RecomputeDriverRating(ctx, driverID); err != nil {
		s.log.Error("driver rating recompute failed",
			zap.String("driver_id", driverID.String()),
			zap.Error(err),
		)
		return &AggregationError{DriverID: driverID, Err: err}
	}
	return nil
}

// RetryDriverRating re-runs the recompute for a caller allowed to ask for it:
// the driver themself, or a student who has rated one of the driver's trips.
func (s *Service) RetryDriverRating(ctx context.Context, actor types.Actor, driverID types.ID) error {
	switch actor.Role {
	case types.RoleDriver:
		if actor.ID != driverID {
			return forbiddenf("driver %s cannot recompute another driver's rating", actor.ID)
		}
	case types.RoleStudent:
		rated, err := s.repo.CompletedRatedByDriver(ctx, driverID)
		if err != nil {
			return err
		}
		if !ratedBy(rated, actor.ID) {
			return forbiddenf("student %s has not rated driver %s", actor.ID, driverID)
		}
	default:
		return forbiddenf("role %q cannot recompute ratings", actor.Role)
	}
	return s.RecomputeDriverRating(ctx, driverID)
}

func ratedBy(bookings []*Booking, studentID types.ID) bool {
	for _, b := range bookings {
		if b.StudentID == studentID {
			return true
		}
	}
	return false
}

func (s *Service) Get(ctx context.Context, id types.ID, actor types.Actor) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(b, actor) {
		return nil, forbiddenf("booking %s is not visible to %s", id, actor.ID)
	}
	return b, nil
}

func canView(b *Booking, actor types.Actor) bool {
	switch actor.Role {
	case types.RoleStudent:
		return b.StudentID == actor.ID
	case types.RoleDriver:
		return b.AssignedTo(actor.ID) || (b.Status == StatusPending && b.DriverID == nil)
	}
	return false
}

// transition is the single read-check-write path shared by every status change.
// A lost compare-and-swap is reported as an invalid transition.
func (s *Service) transition(
	ctx context.Context,
	act Action,
	id types.ID,
	actor types.Actor,
	step func(*Booking) (*Booking, error),
) (*Booking, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := step(current)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Update(ctx, next, current.Status)
	if err != nil {
		return nil, fmt.Errorf("%s booking: %w", act, err)
	}
	if !ok {
		return nil, invalidTransitionf("booking %s changed while trying to %s; it is no longer available", id, act)
	}
	s.committed(ctx, act, current.Status, next, actor)
	return next, nil
}

func (s *Service) committed(ctx context.Context, act Action, from Status, b *Booking, actor types.Actor) {
	actorID := actor.ID
	e := Event{
		BookingID:  b.ID,
		FromStatus: from,
		ToStatus:   b.Status,
		Action:     act,
		ActorRole:  actor.Role,
		ActorID:    &actorID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.AppendEvent(ctx, &e); err != nil {
		s.log.Warn("append booking event failed",
			zap.String("booking_id", b.ID.String()),
			zap.String("action", string(act)),
			zap.Error(err),
		)
	}
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, e, b); err != nil {
			s.log.Warn("publish booking event failed",
				zap.String("booking_id", b.ID.String()),
				zap.String("action", string(act)),
				zap.Error(err),
			)
		}
	}
	s.log.Info("booking "+string(act),
		zap.String("booking_id", b.ID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(b.Status)),
	)
}

// IsRetryable reports whether err is an aggregation failure the caller can retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAggregation)
}
