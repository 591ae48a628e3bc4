package booking

import (
	"context"
	"errors"
	"sync"
)

// ErrStorage marks persistence failures. Callers surface these as retryable;
// the workflow itself never retries.
var ErrStorage = errors.New("booking storage unavailable")

// Store is the append-only booking collection the workflow needs. No update
// or delete operation exists; listings return bookings in creation order,
// which is the order conflict detection reports.
type Store interface {
	ListByDate(ctx context.Context, date string) ([]Booking, error)
	ListAll(ctx context.Context) ([]Booking, error)
	SearchByPhone(ctx context.Context, phone string) ([]Booking, error)
	Append(ctx context.Context, b Booking) error
}

// TxAppender is implemented by stores that can run the same-date overlap
// check and the append in one storage transaction. The per-date lock in the
// workflow only covers one process; the transaction covers every process
// sharing the same database. Implementations return ConflictError when the
// booking overlaps an existing one.
type TxAppender interface {
	AppendChecked(ctx context.Context, b Booking) error
}

// MemoryStore keeps bookings in process memory. It backs tests and
// single-instance deployments that accept losing data on restart; the store
// is owned by whoever constructs it, never shared module state.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings []Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) ListByDate(ctx context.Context, date string) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Booking
	for _, b := range s.bookings {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Booking(nil), s.bookings...), nil
}

// SearchByPhone matches bookings whose customer phone contains the queried
// digits, ignoring formatting on both sides, so partial numbers work at the
// front desk.
func (s *MemoryStore) SearchByPhone(ctx context.Context, phone string) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Booking
	for _, b := range s.bookings {
		if phoneMatches(b.CustomerPhone, phone) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, b Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, b)
	return nil
}
