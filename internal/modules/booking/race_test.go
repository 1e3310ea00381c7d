package booking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/internal/infra"
	"campusride/internal/types"
)

// raceAccept fires n concurrent accepts from distinct drivers at one booking
// and returns the winners and the losers' errors.
func raceAccept(t *testing.T, svc *Service, id types.ID, n int) ([]types.ID, []error) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []types.ID
		losers  []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		driver := types.Actor{ID: types.ID(fmt.Sprintf("driver-%02d", i)), Role: types.RoleDriver}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Accept(context.Background(), AcceptCommand{BookingID: id, Actor: driver})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				losers = append(losers, err)
				return
			}
			winners = append(winners, driver.ID)
		}()
	}
	close(start)
	wg.Wait()
	return winners, losers
}

func assertSingleWinner(t *testing.T, store Repository, id types.ID, winners []types.ID, losers []error, n int) {
	t.Helper()
	require.Len(t, winners, 1, "exactly one driver must win the booking")
	require.Len(t, losers, n-1)
	for _, err := range losers {
		assert.True(t, errors.Is(err, ErrInvalidTransition), "loser got %v", err)
	}
	stored, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, stored.Status)
	require.NotNil(t, stored.DriverID)
	assert.Equal(t, winners[0], *stored.DriverID)
}

func TestConcurrentAccept_MemoryStore(t *testing.T) {
	const drivers = 32
	store := NewMemoryStore()
	svc := NewService(store, nil, nil, nil)

	for round := 0; round < 10; round++ {
		b, err := svc.Create(context.Background(), CreateCommand{Actor: student, Input: validInput()})
		require.NoError(t, err)

		winners, losers := raceAccept(t, svc, b.ID, drivers)
		assertSingleWinner(t, store, b.ID, winners, losers, drivers)

		events := store.Events(b.ID)
		require.Len(t, events, 2, "only the winning accept is recorded")
		assert.Equal(t, winners[0], *events[1].ActorID)
	}
}

func TestConcurrentRate_MemoryStore(t *testing.T) {
	f := newFixture(t)
	b := f.completed(t, driverA)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	start := make(chan struct{})
	for i := 1; i <= 5; i++ {
		rating := float64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Rate(context.Background(), RateCommand{BookingID: b.ID, Actor: student, Input: RateInput{Rating: rating}})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, 1, ok, "a booking is rated exactly once")
}

// TestConcurrentAccept_Postgres exercises the conditional UPDATE against a real
// database. Set CAMPUSRIDE_TEST_DSN to run it.
func TestConcurrentAccept_Postgres(t *testing.T) {
	dsn := os.Getenv("CAMPUSRIDE_TEST_DSN")
	if dsn == "" {
		t.Skip("CAMPUSRIDE_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := infra.NewDB(ctx, dsn, 40)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, infra.Migrate(ctx, pool))

	store := NewStore(pool)
	svc := NewService(store, nil, nil, nil)

	b, err := svc.Create(ctx, CreateCommand{Actor: student, Input: validInput()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM booking_state_events WHERE booking_id = $1`, string(b.ID))
		_, _ = pool.Exec(context.Background(), `DELETE FROM bookings WHERE id = $1`, string(b.ID))
	})

	const drivers = 20
	winners, losers := raceAccept(t, svc, b.ID, drivers)
	assertSingleWinner(t, store, b.ID, winners, losers, drivers)

	done, err := svc.Complete(ctx, CompleteCommand{BookingID: b.ID, Actor: types.Actor{ID: winners[0], Role: types.RoleDriver}})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	_, err = svc.Rate(ctx, RateCommand{BookingID: b.ID, Actor: student, Input: RateInput{Rating: 5, Feedback: "on time"}})
	require.NoError(t, err)
	_, err = svc.Rate(ctx, RateCommand{BookingID: b.ID, Actor: student, Input: RateInput{Rating: 1}})
	require.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 5, *stored.Rating)
	assert.Equal(t, "on time", stored.Feedback)
	assert.Equal(t, 3, stored.StatusVersion)
}
