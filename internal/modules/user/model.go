// README: User record; a driver's Rating is derived and only written by the rating aggregator.
package user

import (
	"context"
	"errors"
	"time"

	"campusride/internal/types"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
	ErrNotDriver  = errors.New("user is not a driver")
)

type User struct {
	ID        types.ID
	Role      types.Role
	Name      string
	Email     string
	Rating    *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	Get(ctx context.Context, id types.ID) (*User, error)
	SaveProfile(ctx context.Context, u *User) error
	SetRating(ctx context.Context, driverID types.ID, value float64) error
}
