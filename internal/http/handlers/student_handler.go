// README: Student handlers for booking history and stats.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/booking"
)

type StudentHandler struct {
	booking *booking.Service
}

func NewStudentHandler(bookingSvc *booking.Service) *StudentHandler {
	return &StudentHandler{booking: bookingSvc}
}

// ListBookings returns the caller's bookings newest first; ?active=true keeps pending and in-progress only.
func (h *StudentHandler) ListBookings(c *gin.Context) {
	activeOnly := false
	if v := c.Query("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "active must be true or false")
			return
		}
		activeOnly = b
	}
	list, err := h.booking.ListByStudent(c.Request.Context(), middleware.CallerActor(c), activeOnly)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": toBookingList(list)})
}

func (h *StudentHandler) Stats(c *gin.Context) {
	st, err := h.booking.StudentStats(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, studentStatsResponse{
		Total:     st.Total,
		Active:    st.Active,
		Completed: st.Completed,
		Cancelled: st.Cancelled,
	})
}
