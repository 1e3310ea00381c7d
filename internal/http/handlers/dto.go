// README: JSON response shapes.
package handlers

import (
	"time"

	"campusride/internal/modules/booking"
	"campusride/internal/modules/user"
)

type bookingResponse struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	DriverID        *string    `json:"driver_id"`
	PickupLocation  string     `json:"pickup_location"`
	DropoffLocation string     `json:"dropoff_location"`
	ScheduledDate   string     `json:"scheduled_date"`
	ScheduledTime   string     `json:"scheduled_time,omitempty"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	Rating          *int       `json:"rating"`
	Feedback        string     `json:"feedback,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	r := bookingResponse{
		ID:              string(b.ID),
		StudentID:       string(b.StudentID),
		PickupLocation:  string(b.PickupLocation),
		DropoffLocation: string(b.DropoffLocation),
		ScheduledDate:   b.ScheduledDate.Format(booking.DateLayout),
		ScheduledTime:   b.ScheduledTime,
		Status:          string(b.Status),
		Notes:           b.Notes,
		Rating:          b.Rating,
		Feedback:        b.Feedback,
		CreatedAt:       b.CreatedAt,
		CompletedAt:     b.CompletedAt,
	}
	if b.DriverID != nil {
		d := string(*b.DriverID)
		r.DriverID = &d
	}
	return r
}

func toBookingList(list []*booking.Booking) []bookingResponse {
	out := make([]bookingResponse, len(list))
	for i, b := range list {
		out[i] = toBookingResponse(b)
	}
	return out
}

type driverStatsResponse struct {
	TotalCompleted int     `json:"total_completed"`
	CompletedToday int     `json:"completed_today"`
	AverageRating  float64 `json:"average_rating"`
	RatedCount     int     `json:"rated_count"`
}

type studentStatsResponse struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type userResponse struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Rating    *float64   `json:"rating,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func toUserResponse(u *user.User) userResponse {
	r := userResponse{
		ID:     string(u.ID),
		Role:   string(u.Role),
		Name:   u.Name,
		Email:  u.Email,
		Rating: u.Rating,
	}
	if !u.CreatedAt.IsZero() {
		t := u.CreatedAt
		r.CreatedAt = &t
	}
	return r
}

// driverProfileResponse is the public view of a driver; email stays private.
type driverProfileResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Rating *float64 `json:"rating"`
}
