package filterstate

import (
	"sync"
	"time"

	"github.com/sari-tools/sales-atlas/pkg/models/domain"
)

// Store holds the canonical FilterState. Mutation goes through the
// setters only, each of which notifies subscribers synchronously with
// the new state. The store is the single writer; there is no ambient
// global.
type Store struct {
	mu    sync.Mutex
	state domain.FilterState
	subs  []func(domain.FilterState)
}

func NewStore() *Store {
	return &Store{}
}

// Get returns a copy of the current state.
func (s *Store) Get() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every mutation. Subscribers are
// invoked outside the store lock, in registration order.
func (s *Store) Subscribe(fn func(domain.FilterState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) SetDateRange(from, to *time.Time) {
	s.mutate(func(fs *domain.FilterState) {
		fs.From = from
		fs.To = to
	})
}

func (s *Store) SetBarangays(values []string) {
	s.mutate(func(fs *domain.FilterState) { fs.Barangays = values })
}

func (s *Store) SetBrands(values []string) {
	s.mutate(func(fs *domain.FilterState) { fs.Brands = values })
}

func (s *Store) SetCategories(values []string) {
	s.mutate(func(fs *domain.FilterState) { fs.Categories = values })
}

func (s *Store) SetStores(values []string) {
	s.mutate(func(fs *domain.FilterState) { fs.Stores = values })
}

// Reset restores the empty defaults.
func (s *Store) Reset() {
	s.mutate(func(fs *domain.FilterState) { *fs = domain.FilterState{} })
}

// Apply replaces every field present in values and leaves the rest
// untouched. Unknown and malformed parameters are ignored, not errored;
// the URL is user-editable surface.
func (s *Store) Apply(values map[string][]string) {
	s.mutate(func(fs *domain.FilterState) {
		applyValues(fs, values)
	})
}

func (s *Store) mutate(apply func(*domain.FilterState)) {
	s.mu.Lock()
	apply(&s.state)
	s.state = s.state.Canonical()
	state := s.state
	subs := make([]func(domain.FilterState), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
