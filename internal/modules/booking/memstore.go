// README: In-memory booking repository with the same compare-and-swap semantics as Store.
package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusride/internal/types"
)

type MemoryStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*Booking
	events   []Event
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: map[types.ID]*Booking{}}
}

func (m *MemoryStore) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; ok {
		return ErrDuplicate
	}
	m.bookings[b.ID] = b.clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, b *Booking, from Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bookings[b.ID]
	if !ok || cur.Status != from || cur.StatusVersion != b.StatusVersion {
		return false, nil
	}
	next := b.clone()
	if cur.DriverID != nil {
		next.DriverID = cur.DriverID
	}
	if cur.CompletedAt != nil {
		next.CompletedAt = cur.CompletedAt
	}
	if cur.Rating != nil {
		next.Rating = cur.Rating
	}
	next.StatusVersion = cur.StatusVersion + 1
	m.bookings[b.ID] = next
	b.StatusVersion = next.StatusVersion
	return true, nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.events = append(m.events, *e)
	return nil
}

// Events returns the recorded transitions for one booking in append order.
func (m *MemoryStore) Events(id types.ID) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.BookingID == id {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryStore) ListForDriver(_ context.Context, driverID types.ID) ([]*Booking, error) {
	out := m.filter(func(b *Booking) bool { return visibleToDriver(b, driverID) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CountForDriver(_ context.Context, driverID types.ID) (int, error) {
	return len(m.filter(func(b *Booking) bool { return visibleToDriver(b, driverID) })), nil
}

func (m *MemoryStore) ListByStudent(_ context.Context, studentID types.ID, activeOnly bool) ([]*Booking, error) {
	out := m.filter(func(b *Booking) bool {
		return b.StudentID == studentID && (!activeOnly || b.Status.Active())
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListCompletedByDriver(_ context.Context, driverID types.ID) ([]*Booking, error) {
	out := m.filter(func(b *Booking) bool {
		return b.AssignedTo(driverID) && b.Status == StatusCompleted
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(*out[j].CompletedAt) })
	return out, nil
}

func (m *MemoryStore) CompletedRatedByDriver(_ context.Context, driverID types.ID) ([]*Booking, error) {
	out := m.filter(func(b *Booking) bool {
		return b.AssignedTo(driverID) && b.Status == StatusCompleted && b.Rated()
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	return out, nil
}

func (m *MemoryStore) DriverStats(_ context.Context, driverID types.ID, since time.Time) (DriverStats, error) {
	var st DriverStats
	sum := 0
	for _, b := range m.filter(func(b *Booking) bool {
		return b.AssignedTo(driverID) && b.Status == StatusCompleted
	}) {
		st.TotalCompleted++
		if b.CompletedAt != nil && !b.CompletedAt.Before(since) {
			st.CompletedToday++
		}
		if b.Rating != nil {
			st.RatedCount++
			sum += *b.Rating
		}
	}
	if st.RatedCount > 0 {
		st.AverageRating = float64(sum) / float64(st.RatedCount)
	}
	return st, nil
}

func (m *MemoryStore) StudentStats(_ context.Context, studentID types.ID) (StudentStats, error) {
	var st StudentStats
	for _, b := range m.filter(func(b *Booking) bool { return b.StudentID == studentID }) {
		st.Total++
		switch {
		case b.Status.Active():
			st.Active++
		case b.Status == StatusCompleted:
			st.Completed++
		case b.Status == StatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

func (m *MemoryStore) filter(keep func(*Booking) bool) []*Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, b.clone())
		}
	}
	return out
}

func visibleToDriver(b *Booking, driverID types.ID) bool {
	if b.Status == StatusInProgress {
		return b.AssignedTo(driverID)
	}
	return b.Status == StatusPending && b.DriverID == nil
}
