// README: Booking aggregate, campus zones and the lifecycle transition table.
package booking

import (
	"time"

	"campusride/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active covers bookings a student is still waiting on.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

type Location string

const (
	LocationLibrary       Location = "library"
	LocationCafeteria     Location = "cafeteria"
	LocationAcademicBlock Location = "academic_block"
	LocationHostel        Location = "hostel"
	LocationSportsComplex Location = "sports_complex"
	LocationParkingLot    Location = "parking_lot"
)

var Locations = []Location{
	LocationLibrary,
	LocationCafeteria,
	LocationAcademicBlock,
	LocationHostel,
	LocationSportsComplex,
	LocationParkingLot,
}

func (l Location) Valid() bool {
	for _, v := range Locations {
		if v == l {
			return true
		}
	}
	return false
}

const (
	MaxTextLength = 500
	MinRating     = 1
	MaxRating     = 5
	DateLayout    = "2006-01-02"
	TimeLayout    = "15:04"
)

type Booking struct {
	ID              types.ID
	StudentID       types.ID
	DriverID        *types.ID
	PickupLocation  Location
	DropoffLocation Location
	ScheduledDate   time.Time
	ScheduledTime   string
	Status          Status
	StatusVersion   int
	Notes           string
	Rating          *int
	Feedback        string
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Rated reports whether the booking carries a stored rating.
func (b *Booking) Rated() bool {
	return b.Rating != nil
}

// AssignedTo reports whether driverID is the accepting driver.
func (b *Booking) AssignedTo(driverID types.ID) bool {
	return b.DriverID != nil && *b.DriverID == driverID
}

func (b *Booking) clone() *Booking {
	c := *b
	if b.DriverID != nil {
		d := *b.DriverID
		c.DriverID = &d
	}
	if b.Rating != nil {
		r := *b.Rating
		c.Rating = &r
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	Action     Action
	ActorRole  types.Role
	ActorID    *types.ID
	CreatedAt  time.Time
}

type Action string

const (
	ActionCreate   Action = "create"
	ActionAccept   Action = "accept"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionRate     Action = "rate"
)

// AllowedTransitions represents the booking state flow as code.
// Completed and cancelled have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusNone:       {StatusPending},
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Rule binds an action to the single status it may start from, the status it
// leaves the booking in and the role allowed to perform it. Rate keeps the
// booking in completed and only fills the rating fields.
type Rule struct {
	From Status
	To   Status
	Role types.Role
}

var Rules = map[Action]Rule{
	ActionCreate:   {From: StatusNone, To: StatusPending, Role: types.RoleStudent},
	ActionAccept:   {From: StatusPending, To: StatusInProgress, Role: types.RoleDriver},
	ActionComplete: {From: StatusInProgress, To: StatusCompleted, Role: types.RoleDriver},
	ActionCancel:   {From: StatusPending, To: StatusCancelled, Role: types.RoleStudent},
	ActionRate:     {From: StatusCompleted, To: StatusCompleted, Role: types.RoleStudent},
}

// DriverStats is a point-in-time summary for one driver.
type DriverStats struct {
	TotalCompleted int
	CompletedToday int
	AverageRating  float64
	RatedCount     int
}

// StudentStats is a point-in-time summary for one student.
type StudentStats struct {
	Total     int
	Active    int
	Completed int
	Cancelled int
}
