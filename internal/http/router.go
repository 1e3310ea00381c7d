// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusride/internal/http/handlers"
	"campusride/internal/http/middleware"
	"campusride/internal/infra"
	"campusride/internal/modules/booking"
	"campusride/internal/modules/user"
)

type RouterDeps struct {
	Booking  *booking.Service
	Users    *user.Service
	Feed     handlers.FeedSource
	Verifier infra.TokenVerifier
	Log      *zap.Logger
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log), corsMiddleware(deps.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	bookingHandler := handlers.NewBookingHandler(deps.Booking)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/accept", bookingHandler.Accept)
	api.POST("/bookings/:id/complete", bookingHandler.Complete)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:id/rate", bookingHandler.Rate)

	driverHandler := handlers.NewDriverHandler(deps.Booking, deps.Users, deps.Feed)
	api.GET("/drivers/me/bookings", driverHandler.ListBookings)
	api.GET("/drivers/me/bookings/count", driverHandler.CountBookings)
	api.GET("/drivers/me/bookings/completed", driverHandler.ListCompleted)
	api.GET("/drivers/me/stats", driverHandler.Stats)
	api.GET("/drivers/feed", driverHandler.Feed)
	api.GET("/drivers/feed/ws", driverHandler.FeedSocket)
	api.GET("/drivers/:id", driverHandler.Profile)
	api.GET("/drivers/:id/rating", driverHandler.Rating)
	api.POST("/drivers/:id/rating/recompute", driverHandler.RecomputeRating)

	studentHandler := handlers.NewStudentHandler(deps.Booking)
	api.GET("/students/me/bookings", studentHandler.ListBookings)
	api.GET("/students/me/stats", studentHandler.Stats)

	userHandler := handlers.NewUserHandler(deps.Users)
	api.GET("/users/me", userHandler.Me)
	api.PATCH("/users/me", userHandler.UpdateMe)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
	return cors.New(cfg)
}
