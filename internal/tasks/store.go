package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meetingbaas/settings/internal/shared"
)

// Store holds the latest value of T for a single owner.
//
// Every write bumps the version. [Store.Replace] also bumps the epoch, which marks in-flight optimistic writes as stale.
type Store[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	epoch   uint64
	clone   func(T) T
	revert  func(prev, next, current T) T
}

// NewStore creates a store seeded with initial. clone copies values handed out by [Store.Get].
func NewStore[T any](initial T, clone func(T) T) *Store[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Store[T]{value: initial, clone: clone}
}

// WithRevert sets how a failed write is undone once later writes have landed on top of it.
//
// revert receives the value the write started from, the value it wrote, and the current value,
// and returns current with only the failed write's own changes undone.
func (s *Store[T]) WithRevert(revert func(prev, next, current T) T) *Store[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revert = revert
	return s
}

// Get returns a copy of the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone(s.value)
}

// Version returns the current version and epoch.
func (s *Store[T]) Version() (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, s.epoch
}

// Replace swaps in a freshly fetched value and starts a new epoch.
func (s *Store[T]) Replace(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.version++
	s.epoch++
}

// Outcome describes what happened to an optimistic write.
type Outcome int

const (
	Confirmed  Outcome = iota // persisted and kept
	Unchanged                 // transform failed, nothing written
	RolledBack                // persist failed, previous value restored
	Superseded                // persist failed after a later write, only its own changes reverted
	Discarded                 // epoch changed or ctx cancelled before the result arrived
)

func (o Outcome) String() string {
	switch o {
	case Confirmed:
		return "confirmed"
	case Unchanged:
		return "unchanged"
	case RolledBack:
		return "rolled_back"
	case Superseded:
		return "superseded"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Transform computes the next value from the current one.
type Transform[T any] func(current T) (T, error)

// Persist sends a change to the backend. prev is the value the change was computed from.
type Persist[T any] func(ctx context.Context, prev, next T) error

// Optimistic writes transform's result immediately, then persists it.
//
// On persist failure the store is rolled back to the value captured before the write if no other write happened since.
// Otherwise the store's revert function, when set, undoes only this write's changes.
// If the store was replaced or ctx was cancelled while persist ran, the store is left alone.
// Persist errors are wrapped in [shared.ErrPersistenceFailure].
func Optimistic[T any](ctx context.Context, s *Store[T], transform Transform[T], persist Persist[T]) (T, Outcome, error) {
	s.mu.Lock()
	prev := s.value
	next, err := transform(s.clone(prev))
	if err != nil {
		s.mu.Unlock()
		return s.clone(prev), Unchanged, err
	}
	s.value = next
	s.version++
	version, epoch := s.version, s.epoch
	s.mu.Unlock()

	err = persist(ctx, s.clone(prev), s.clone(next))

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || s.epoch != epoch {
		if err != nil {
			return s.clone(s.value), Discarded, fmt.Errorf("%w: %w", shared.ErrStaleResult, persistErr(err))
		}
		return s.clone(s.value), Discarded, nil
	}

	if err == nil {
		return s.clone(s.value), Confirmed, nil
	}

	if s.version != version {
		if s.revert != nil {
			s.value = s.revert(s.clone(prev), s.clone(next), s.clone(s.value))
			s.version++
		}
		return s.clone(s.value), Superseded, persistErr(err)
	}

	s.value = prev
	s.version++
	return s.clone(prev), RolledBack, persistErr(err)
}

// Pessimistic persists first and applies transform to the latest value only after the backend accepts it.
func Pessimistic[T any](ctx context.Context, s *Store[T], transform Transform[T], persist Persist[T]) (T, Outcome, error) {
	s.mu.Lock()
	prev := s.clone(s.value)
	epoch := s.epoch
	s.mu.Unlock()

	next, err := transform(s.clone(prev))
	if err != nil {
		return prev, Unchanged, err
	}

	if err := persist(ctx, prev, next); err != nil {
		return prev, Unchanged, persistErr(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || s.epoch != epoch {
		return s.clone(s.value), Discarded, nil
	}

	applied, err := transform(s.clone(s.value))
	if err != nil {
		return s.clone(s.value), Unchanged, err
	}
	s.value = applied
	s.version++
	return s.clone(applied), Confirmed, nil
}

func persistErr(err error) error {
	if errors.Is(err, shared.ErrPersistenceFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrPersistenceFailure, err)
}
