package cart

import (
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/delivery"
	"github.com/angelmondragon/storefront-backend/internal/promo"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrDuplicatePromo  = errors.New("promo code already applied to this line")
)

// Repricer recomputes a line for a new quantity. Lines with a captured price
// override are never passed to it.
type Repricer func(line Line, quantity int) (Line, error)

// Snapshot is the serializable state of a store.
type Snapshot struct {
	Lines   []Line         `json:"lines"`
	Promos  []AppliedPromo `json:"promos"`
	Version int64          `json:"version"`
}

// Store owns one cart. Every mutation is sequenced through its mutex and
// invalidates the memoized totals.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	promos  []AppliedPromo
	version int64
	rates   *delivery.Table

	totals    *Totals
	totalsErr error
}

// NewStore returns an empty cart priced with rates.
func NewStore(rates *delivery.Table) *Store {
	return &Store{rates: rates}
}

// Restore rebuilds a store from a snapshot.
func Restore(snapshot Snapshot, rates *delivery.Table) *Store {
	s := NewStore(rates)
	s.lines = append([]Line(nil), snapshot.Lines...)
	s.promos = append([]AppliedPromo(nil), snapshot.Promos...)
	s.version = snapshot.Version
	return s
}

// AddLine increments the quantity of a line with the same product and
// selection, or appends candidate. The returned bool reports a merge.
func (s *Store) AddLine(candidate Line, reprice Repricer) (Line, bool, error) {
	if candidate.Quantity < 1 {
		return Line{}, false, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := candidate.mergeKey()
	for i, existing := range s.lines {
		if existing.mergeKey() != key {
			continue
		}
		updated, err := s.requantify(existing, existing.Quantity+candidate.Quantity, reprice)
		if err != nil {
			return Line{}, false, err
		}
		if candidate.PickupDate != nil {
			updated.PickupDate = candidate.PickupDate
		}
		s.lines[i] = updated
		s.touch()
		return updated, true, nil
	}

	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	s.lines = append(s.lines, candidate)
	s.touch()
	return candidate, false, nil
}

// SetQuantity changes the quantity of a line. Lines without a captured price
// are repriced for the new quantity.
func (s *Store) SetQuantity(id uuid.UUID, quantity int, reprice Repricer) (Line, error) {
	if quantity < 1 {
		return Line{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	updated, err := s.requantify(s.lines[i], quantity, reprice)
	if err != nil {
		return Line{}, err
	}
	s.lines[i] = updated
	s.touch()
	return updated, nil
}

// SetPickupDate sets or clears the pickup date of a line.
func (s *Store) SetPickupDate(id uuid.UUID, date *civil.Date) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	s.lines[i].PickupDate = date
	s.touch()
	return s.lines[i], nil
}

// Remove deletes a line and the promo codes applied to it.
func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrLineNotFound
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	kept := s.promos[:0]
	for _, p := range s.promos {
		if p.LineID != id {
			kept = append(kept, p)
		}
	}
	s.promos = kept
	s.touch()
	return nil
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.promos = nil
	s.touch()
}

// Line returns a copy of one line.
func (s *Store) Line(id uuid.UUID) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Line{}, ErrLineNotFound
	}
	return s.lines[i], nil
}

// ApplyPromo records an accepted code for a line. The same code cannot be
// applied twice to one line.
func (s *Store) ApplyPromo(applied AppliedPromo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(applied.LineID) < 0 {
		return ErrLineNotFound
	}
	applied.Code = promo.NormalizeCode(applied.Code)
	for _, existing := range s.promos {
		if existing.LineID == applied.LineID && existing.Code == applied.Code {
			return fmt.Errorf("%w: %s", ErrDuplicatePromo, applied.Code)
		}
	}
	s.promos = append(s.promos, applied)
	s.touch()
	return nil
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Lines:   append([]Line{}, s.lines...),
		Promos:  append([]AppliedPromo{}, s.promos...),
		Version: s.version,
	}
}

// Totals returns the aggregated cart, computed once per mutation.
func (s *Store) Totals() (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totals == nil && s.totalsErr == nil {
		totals, err := Aggregate(s.lines, s.promos, s.rates)
		if err != nil {
			s.totalsErr = err
		} else {
			s.totals = &totals
		}
	}
	if s.totalsErr != nil {
		return Totals{}, s.totalsErr
	}
	return *s.totals, nil
}

// Empty reports whether the cart has no lines.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// requantify sets a line's quantity. Fixed-price lines keep their captured
// price, so adding the same section again counts as a second purchase of it
// (quantity 2, twice the section price) even though one add always resolves
// with quantity 1.
func (s *Store) requantify(line Line, quantity int, reprice Repricer) (Line, error) {
	if line.Fixed() || reprice == nil {
		line.Quantity = quantity
		return line, nil
	}
	updated, err := reprice(line, quantity)
	if err != nil {
		return Line{}, err
	}
	updated.ID = line.ID
	updated.PickupDate = line.PickupDate
	updated.AddedAt = line.AddedAt
	return updated, nil
}

func (s *Store) indexOf(id uuid.UUID) int {
	for i, line := range s.lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// touch must be called with mu held.
func (s *Store) touch() {
	s.version++
	s.totals = nil
	s.totalsErr = nil
}
