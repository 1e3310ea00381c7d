// README: Booking lifecycle handlers: create, read, accept, complete, cancel, rate.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/booking"
	"campusride/internal/types"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(bookingSvc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: bookingSvc}
}

type createBookingRequest struct {
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
	ScheduledDate   string `json:"scheduled_date"`
	ScheduledTime   string `json:"scheduled_time"`
	Notes           string `json:"notes"`
}

type rateBookingRequest struct {
	Rating   float64 `json:"rating"`
	Feedback string  `json:"feedback"`
}

type aggregationFailureResponse struct {
	Error   string          `json:"error"`
	Booking bookingResponse `json:"booking"`
	Retry   string          `json:"retry"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.booking.Create(c.Request.Context(), booking.CreateCommand{
		Actor: middleware.CallerActor(c),
		Input: booking.CreateInput{
			PickupLocation:  booking.Location(req.PickupLocation),
			DropoffLocation: booking.Location(req.DropoffLocation),
			ScheduledDate:   req.ScheduledDate,
			ScheduledTime:   req.ScheduledTime,
			Notes:           req.Notes,
		},
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Get(c.Request.Context(), types.ID(id), middleware.CallerActor(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Accept(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Accept(c.Request.Context(), booking.AcceptCommand{
		BookingID: types.ID(id),
		Actor:     middleware.CallerActor(c),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Complete(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Complete(c.Request.Context(), booking.CompleteCommand{
		BookingID: types.ID(id),
		Actor:     middleware.CallerActor(c),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Cancel(c.Request.Context(), booking.CancelCommand{
		BookingID: types.ID(id),
		Actor:     middleware.CallerActor(c),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}

// Rate answers 503 with the stored booking when only the driver average failed to update.
func (h *BookingHandler) Rate(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req rateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.booking.Rate(c.Request.Context(), booking.RateCommand{
		BookingID: types.ID(id),
		Actor:     middleware.CallerActor(c),
		Input:     booking.RateInput{Rating: req.Rating, Feedback: req.Feedback},
	})
	var aggErr *booking.AggregationError
	if errors.As(err, &aggErr) && b != nil {
		_ = c.Error(err)
		writeJSON(c, http.StatusServiceUnavailable, aggregationFailureResponse{
			Error:   err.Error(),
			Booking: toBookingResponse(b),
			Retry:   "/api/drivers/" + aggErr.DriverID.String() + "/rating/recompute",
		})
		return
	}
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResponse(b))
}
