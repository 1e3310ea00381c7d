package rating_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/internal/modules/booking"
	"campusride/internal/modules/rating"
	"campusride/internal/modules/user"
	"campusride/internal/types"
)

type stubSource struct {
	bookings []*booking.Booking
	err      error
}

func (s stubSource) CompletedRatedByDriver(context.Context, types.ID) ([]*booking.Booking, error) {
	return s.bookings, s.err
}

type stubWriter struct {
	writes []float64
	err    error
}

func (w *stubWriter) SetRating(_ context.Context, _ types.ID, value float64) error {
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, value)
	return nil
}

func rated(driver types.ID, status booking.Status, r *int) *booking.Booking {
	d := driver
	at := time.Now()
	return &booking.Booking{DriverID: &d, Status: status, Rating: r, CompletedAt: &at}
}

func intPtr(v int) *int { return &v }

func TestRecompute_Mean(t *testing.T) {
	src := stubSource{bookings: []*booking.Booking{
		rated("d1", booking.StatusCompleted, intPtr(5)),
		rated("d1", booking.StatusCompleted, intPtr(4)),
		rated("d1", booking.StatusCompleted, intPtr(2)),
		// ignored
		rated("d1", booking.StatusCompleted, nil),
		rated("d1", booking.StatusCancelled, intPtr(1)),
		rated("d2", booking.StatusCompleted, intPtr(1)),
	}}
	w := &stubWriter{}
	svc := rating.NewService(src, w, nil)

	res, err := svc.Recompute(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 3, res.Count)
	assert.InDelta(t, 11.0/3.0, res.Average, 1e-9)
	assert.Equal(t, []float64{res.Average}, w.writes)
}

func TestRecompute_Idempotent(t *testing.T) {
	src := stubSource{bookings: []*booking.Booking{
		rated("d1", booking.StatusCompleted, intPtr(3)),
		rated("d1", booking.StatusCompleted, intPtr(4)),
	}}
	w := &stubWriter{}
	svc := rating.NewService(src, w, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecomputeDriverRating(context.Background(), "d1"))
	}
	assert.Equal(t, []float64{3.5, 3.5, 3.5}, w.writes)
}

func TestRecompute_NoQualifyingBookingsLeavesRating(t *testing.T) {
	w := &stubWriter{}
	svc := rating.NewService(stubSource{}, w, nil)

	res, err := svc.Recompute(context.Background(), "d1")
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Zero(t, res.Count)
	assert.Empty(t, w.writes)
}

func TestRecompute_Errors(t *testing.T) {
	boom := errors.New("boom")

	_, err := rating.NewService(stubSource{err: boom}, &stubWriter{}, nil).Recompute(context.Background(), "d1")
	assert.ErrorIs(t, err, boom)

	src := stubSource{bookings: []*booking.Booking{rated("d1", booking.StatusCompleted, intPtr(5))}}
	res, err := rating.NewService(src, &stubWriter{err: boom}, nil).Recompute(context.Background(), "d1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Updated)
}

// TestRatingFlow drives the booking service end to end and checks the stored
// driver rating after every submitted rating.
func TestRatingFlow(t *testing.T) {
	ctx := context.Background()
	bookings := booking.NewMemoryStore()
	users := user.NewMemoryStore()
	agg := rating.NewService(bookings, users, nil)
	svc := booking.NewService(bookings, agg, nil, nil)
	profiles := user.NewService(users, nil)

	student := types.Actor{ID: "s1", Role: types.RoleStudent}
	driver := types.Actor{ID: "d1", Role: types.RoleDriver}

	trip := func() types.ID {
		b, err := svc.Create(ctx, booking.CreateCommand{Actor: student, Input: booking.CreateInput{
			PickupLocation:  booking.LocationCafeteria,
			DropoffLocation: booking.LocationParkingLot,
			ScheduledDate:   "2026-10-21",
		}})
		require.NoError(t, err)
		_, err = svc.Accept(ctx, booking.AcceptCommand{BookingID: b.ID, Actor: driver})
		require.NoError(t, err)
		_, err = svc.Complete(ctx, booking.CompleteCommand{BookingID: b.ID, Actor: driver})
		require.NoError(t, err)
		return b.ID
	}

	r, err := profiles.DriverRating(ctx, driver.ID)
	assert.ErrorIs(t, err, user.ErrNotFound, "no record before the first rating")
	assert.Nil(t, r)

	unrated := trip()
	for _, tc := range []struct {
		score float64
		want  float64
	}{
		{5, 5},
		{4, 4.5},
		{3, 4},
	} {
		_, err := svc.Rate(ctx, booking.RateCommand{BookingID: trip(), Actor: student, Input: booking.RateInput{Rating: tc.score}})
		require.NoError(t, err)
		r, err := profiles.DriverRating(ctx, driver.ID)
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.InDelta(t, tc.want, *r, 1e-9)
	}

	// A completed but unrated trip never affects the average.
	stored, err := bookings.Get(ctx, unrated)
	require.NoError(t, err)
	assert.False(t, stored.Rated())

	stats, err := svc.DriverStats(ctx, driver)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCompleted)
	assert.Equal(t, 3, stats.RatedCount)
	assert.InDelta(t, 4.0, stats.AverageRating, 1e-9)
}

func TestRatingFlow_StudentIsNotADriver(t *testing.T) {
	ctx := context.Background()
	users := user.NewMemoryStore()
	name := "Asha"
	_, err := user.NewService(users, nil).UpdateProfile(ctx,
		types.Actor{ID: "x1", Role: types.RoleStudent}, "x1", user.ProfileUpdate{Name: &name})
	require.NoError(t, err)

	src := stubSource{bookings: []*booking.Booking{rated("x1", booking.StatusCompleted, intPtr(5))}}
	_, err = rating.NewService(src, users, nil).Recompute(ctx, "x1")
	assert.ErrorIs(t, err, user.ErrNotDriver)
}

func TestRetryPending(t *testing.T) {
	ctx := context.Background()
	src := stubSource{bookings: []*booking.Booking{rated("d1", booking.StatusCompleted, intPtr(4))}}
	w := &stubWriter{err: errors.New("down")}
	svc := rating.NewService(src, w, nil)

	require.Error(t, svc.RecomputeDriverRating(ctx, "d1"))
	assert.Equal(t, []types.ID{"d1"}, svc.Pending())

	assert.Equal(t, 1, svc.RetryPending(ctx))
	assert.Equal(t, []types.ID{"d1"}, svc.Pending())

	w.err = nil
	assert.Equal(t, 0, svc.RetryPending(ctx))
	assert.Empty(t, svc.Pending())
	assert.Equal(t, []float64{4}, w.writes)
}

func TestRunRetryLoop(t *testing.T) {
	src := stubSource{bookings: []*booking.Booking{rated("d1", booking.StatusCompleted, intPtr(2))}}
	svc := rating.NewService(src, &stubWriter{err: errors.New("down")}, nil)
	require.Error(t, svc.RecomputeDriverRating(context.Background(), "d1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunRetryLoop(ctx, 5*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop")
	}
}
