// README: User service for profile reads/updates and driver rating lookups.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"campusride/internal/types"
)

type Service struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, validate: validator.New()}
}

// ProfileUpdate holds the only fields a user may change on themselves.
type ProfileUpdate struct {
	Name  *string `validate:"omitnil,min=1,max=100"`
	Email *string `validate:"omitnil,email,max=254"`
}

// Me returns the caller's record, or a blank one when the identity provider
// knows the user but no profile has been saved yet.
func (s *Service) Me(ctx context.Context, actor types.Actor) (*User, error) {
	u, err := s.repo.Get(ctx, actor.ID)
	if errors.Is(err, ErrNotFound) {
		return &User{ID: actor.ID, Role: actor.Role}, nil
	}
	return u, err
}

func (s *Service) GetDriver(ctx context.Context, id types.ID) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != types.RoleDriver {
		return nil, ErrNotFound
	}
	return u, nil
}

// DriverRating returns nil when the driver has not been rated yet.
func (s *Service) DriverRating(ctx context.Context, id types.ID) (*float64, error) {
	u, err := s.GetDriver(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Rating, nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor types.Actor, id types.ID, upd ProfileUpdate) (*User, error) {
	if actor.ID != id {
		return nil, fmt.Errorf("%w: users may only update their own profile", ErrForbidden)
	}
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		upd.Name = &n
	}
	if upd.Email != nil {
		e := strings.TrimSpace(*upd.Email)
		upd.Email = &e
	}
	if err := s.validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if upd.Name == nil && upd.Email == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	u, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if err := s.repo.SaveProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.log.Info("profile updated", zap.String("user_id", id.String()))
	return u, nil
}
