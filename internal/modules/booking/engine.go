// README: Pure lifecycle engine; every function takes a snapshot and returns the next one or a rejection.
package booking

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"campusride/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("campus_zone", func(fl validator.FieldLevel) bool {
		return Location(fl.Field().String()).Valid()
	})
	return v
}

// CreateInput is the student-supplied part of a new booking.
type CreateInput struct {
	PickupLocation  Location `validate:"required,campus_zone"`
	DropoffLocation Location `validate:"required,campus_zone,nefield=PickupLocation"`
	ScheduledDate   string   `validate:"required,datetime=2006-01-02"`
	ScheduledTime   string   `validate:"omitempty,datetime=15:04"`
	Notes           string   `validate:"max=500"`
}

// RateInput carries the rating as submitted; fractional values are rejected.
type RateInput struct {
	Rating   float64 `validate:"gte=1,lte=5"`
	Feedback string  `validate:"max=500"`
}

// NewBooking is the single creation path for a Booking.
func NewBooking(id types.ID, actor types.Actor, in CreateInput, now time.Time) (*Booking, error) {
	if err := checkRole(ActionCreate, actor); err != nil {
		return nil, err
	}
	if actor.ID == "" {
		return nil, validationf("student id is required")
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validate.Struct(in); err != nil {
		return nil, translate(err)
	}
	date, err := time.Parse(DateLayout, in.ScheduledDate)
	if err != nil {
		return nil, validationf("scheduled_date: %v", err)
	}
	rule := Rules[ActionCreate]
	return &Booking{
		ID:              id,
		StudentID:       actor.ID,
		PickupLocation:  in.PickupLocation,
		DropoffLocation: in.DropoffLocation,
		ScheduledDate:   date,
		ScheduledTime:   in.ScheduledTime,
		Status:          rule.To,
		Notes:           in.Notes,
		CreatedAt:       now,
	}, nil
}

// Accept assigns the acting driver to a pending booking.
func Accept(b *Booking, actor types.Actor) (*Booking, error) {
	if err := checkRole(ActionAccept, actor); err != nil {
		return nil, err
	}
	if err := checkStatus(ActionAccept, b); err != nil {
		return nil, err
	}
	next := b.clone()
	driverID := actor.ID
	next.DriverID = &driverID
	next.Status = Rules[ActionAccept].To
	return next, nil
}

// Complete closes a trip; only the accepting driver may do so.
func Complete(b *Booking, actor types.Actor, now time.Time) (*Booking, error) {
	if err := checkRole(ActionComplete, actor); err != nil {
		return nil, err
	}
	if b.DriverID != nil && *b.DriverID != actor.ID {
		return nil, forbiddenf("booking %s is assigned to another driver", b.ID)
	}
	if err := checkStatus(ActionComplete, b); err != nil {
		return nil, err
	}
	next := b.clone()
	next.Status = Rules[ActionComplete].To
	completedAt := now
	next.CompletedAt = &completedAt
	return next, nil
}

// Cancel withdraws a pending booking; the window closes once a driver accepts.
func Cancel(b *Booking, actor types.Actor) (*Booking, error) {
	if err := checkRole(ActionCancel, actor); err != nil {
		return nil, err
	}
	if b.StudentID != actor.ID {
		return nil, forbiddenf("booking %s belongs to another student", b.ID)
	}
	if err := checkStatus(ActionCancel, b); err != nil {
		return nil, err
	}
	next := b.clone()
	next.Status = Rules[ActionCancel].To
	return next, nil
}

// ValidateRating checks a submitted rating before any booking is loaded.
func ValidateRating(in RateInput) (int, error) {
	if math.IsNaN(in.Rating) || math.IsInf(in.Rating, 0) || in.Rating != math.Trunc(in.Rating) {
		return 0, validationf("rating must be a whole number between %d and %d", MinRating, MaxRating)
	}
	if err := validate.Struct(in); err != nil {
		return 0, translate(err)
	}
	return int(in.Rating), nil
}

// Rate stores a rating exactly once on a completed booking owned by the student.
// value must already have passed ValidateRating.
func Rate(b *Booking, actor types.Actor, value int, feedback string) (*Booking, error) {
	if err := checkRole(ActionRate, actor); err != nil {
		return nil, err
	}
	if b.StudentID != actor.ID {
		return nil, forbiddenf("booking %s belongs to another student", b.ID)
	}
	if err := checkStatus(ActionRate, b); err != nil {
		return nil, err
	}
	if b.Rated() {
		return nil, invalidTransitionf("booking %s is already rated", b.ID)
	}
	if b.DriverID == nil {
		return nil, invalidTransitionf("booking %s has no driver to rate", b.ID)
	}
	next := b.clone()
	next.Rating = &value
	next.Feedback = strings.TrimSpace(feedback)
	return next, nil
}

func checkRole(act Action, actor types.Actor) error {
	rule := Rules[act]
	if actor.Role != rule.Role {
		return forbiddenf("only a %s may %s a booking", rule.Role, act)
	}
	return nil
}

func checkStatus(act Action, b *Booking) error {
	rule := Rules[act]
	if b.Status != rule.From {
		return invalidTransitionf("cannot %s booking %s in status %s", act, b.ID, b.Status)
	}
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationf("%v", err)
	}
	fe := verrs[0]
	field := fieldNames[fe.Field()]
	if field == "" {
		field = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return validationf("%s is required", field)
	case "campus_zone":
		return validationf("%s must be one of %s", field, zoneList())
	case "nefield":
		return validationf("pickup and dropoff locations cannot be the same")
	case "datetime":
		return validationf("%s must match %s", field, fe.Param())
	case "max":
		return validationf("%s cannot be longer than %s characters", field, fe.Param())
	case "gte", "lte":
		return validationf("rating must be a whole number between %d and %d", MinRating, MaxRating)
	}
	return validationf("%s failed %s", field, fe.Tag())
}

var fieldNames = map[string]string{
	"PickupLocation":  "pickup_location",
	"DropoffLocation": "dropoff_location",
	"ScheduledDate":   "scheduled_date",
	"ScheduledTime":   "scheduled_time",
	"Notes":           "notes",
	"Rating":          "rating",
	"Feedback":        "feedback",
}

func zoneList() string {
	names := make([]string, len(Locations))
	for i, l := range Locations {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}
