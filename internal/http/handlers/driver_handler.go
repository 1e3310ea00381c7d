// README: Driver handlers for the open pool, trip history, stats, the live feed and public driver ratings.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/booking"
	"campusride/internal/modules/feed"
	"campusride/internal/modules/user"
	"campusride/internal/types"
)

// FeedSource streams booking feed messages until ctx is done.
type FeedSource interface {
	Subscribe(ctx context.Context) (<-chan feed.Message, error)
}

const (
	feedHeartbeat    = 25 * time.Second
	feedWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is not checked; every feed connection is authenticated by token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type DriverHandler struct {
	booking *booking.Service
	users   *user.Service
	feed    FeedSource
}

func NewDriverHandler(bookingSvc *booking.Service, userSvc *user.Service, source FeedSource) *DriverHandler {
	return &DriverHandler{booking: bookingSvc, users: userSvc, feed: source}
}

// ListBookings returns the open pool plus the caller's own in-progress trips.
func (h *DriverHandler) ListBookings(c *gin.Context) {
	list, err := h.booking.ListForDriver(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": toBookingList(list)})
}

func (h *DriverHandler) CountBookings(c *gin.Context) {
	n, err := h.booking.CountForDriver(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"count": n})
}

func (h *DriverHandler) ListCompleted(c *gin.Context) {
	list, err := h.booking.ListCompletedByDriver(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": toBookingList(list)})
}

func (h *DriverHandler) Stats(c *gin.Context) {
	st, err := h.booking.DriverStats(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, driverStatsResponse{
		TotalCompleted: st.TotalCompleted,
		CompletedToday: st.CompletedToday,
		AverageRating:  st.AverageRating,
		RatedCount:     st.RatedCount,
	})
}

func (h *DriverHandler) Profile(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	u, err := h.users.GetDriver(c.Request.Context(), types.ID(id))
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, driverProfileResponse{ID: string(u.ID), Name: u.Name, Rating: u.Rating})
}

// Rating answers with a null rating for a driver nobody has rated yet.
func (h *DriverHandler) Rating(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	r, err := h.users.DriverRating(c.Request.Context(), types.ID(id))
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver_id": id, "rating": r})
}

// RecomputeRating re-runs the driver average on its own, for retrying after a 503 from rate.
// Only the driver or a student who rated one of their trips may call it.
func (h *DriverHandler) RecomputeRating(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid driver id")
		return
	}
	ctx := c.Request.Context()
	if err := h.booking.RetryDriverRating(ctx, middleware.CallerActor(c), types.ID(id)); err != nil {
		writeBookingError(c, err)
		return
	}
	r, err := h.users.DriverRating(ctx, types.ID(id))
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver_id": id, "rating": r})
}

// Feed streams booking changes relevant to the driver as server-sent events.
func (h *DriverHandler) Feed(c *gin.Context) {
	actor, ok := h.feedActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	msgs, err := h.feed.Subscribe(ctx)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusServiceUnavailable, "booking feed unavailable")
		return
	}

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(feedHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if !m.VisibleTo(actor) {
				continue
			}
			c.SSEvent(m.Action, m)
			c.Writer.Flush()
		}
	}
}

// FeedSocket carries the same stream as Feed over a WebSocket.
func (h *DriverHandler) FeedSocket(c *gin.Context) {
	actor, ok := h.feedActor(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	msgs, err := h.feed.Subscribe(ctx)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusServiceUnavailable, "booking feed unavailable")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Time{})

	// The client sends nothing; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(feedHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteTimeout)); err != nil {
				return
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if !m.VisibleTo(actor) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
	}
}

func (h *DriverHandler) feedActor(c *gin.Context) (types.Actor, bool) {
	actor := middleware.CallerActor(c)
	if actor.Role != types.RoleDriver {
		writeError(c, http.StatusForbidden, "only drivers can follow the booking feed")
		return actor, false
	}
	if h.feed == nil {
		writeError(c, http.StatusServiceUnavailable, "booking feed is not configured")
		return actor, false
	}
	return actor, true
}
