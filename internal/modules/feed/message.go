// README: Wire shape of booking feed messages and who may see them.
package feed

import (
	"time"

	"campusride/internal/modules/booking"
	"campusride/internal/types"
)

type Message struct {
	EventID         int64     `json:"event_id"`
	BookingID       string    `json:"booking_id"`
	Action          string    `json:"action"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	ActorRole       string    `json:"actor_role"`
	StudentID       string    `json:"student_id"`
	DriverID        string    `json:"driver_id,omitempty"`
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
	ScheduledDate   string    `json:"scheduled_date"`
	ScheduledTime   string    `json:"scheduled_time,omitempty"`
	At              time.Time `json:"at"`
}

func NewMessage(e booking.Event, b *booking.Booking) Message {
	m := Message{
		EventID:         e.ID,
		BookingID:       string(e.BookingID),
		Action:          string(e.Action),
		From:            string(e.FromStatus),
		To:              string(e.ToStatus),
		ActorRole:       string(e.ActorRole),
		StudentID:       string(b.StudentID),
		PickupLocation:  string(b.PickupLocation),
		DropoffLocation: string(b.DropoffLocation),
		ScheduledDate:   b.ScheduledDate.Format(booking.DateLayout),
		ScheduledTime:   b.ScheduledTime,
		At:              e.CreatedAt,
	}
	if b.DriverID != nil {
		m.DriverID = string(*b.DriverID)
	}
	return m
}

// VisibleTo reports whether the actor should receive m. Drivers see every
// change entering or leaving the open pool, so a booking taken by someone else
// drops off their list, plus anything on their own trips. Students only see
// their own bookings.
func (m Message) VisibleTo(actor types.Actor) bool {
	switch actor.Role {
	case types.RoleDriver:
		if m.DriverID == string(actor.ID) {
			return true
		}
		return m.To == string(booking.StatusPending) || m.From == string(booking.StatusPending)
	case types.RoleStudent:
		return m.StudentID == string(actor.ID)
	}
	return false
}
