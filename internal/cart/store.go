package cart

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/example/storefront/internal/storage"
	"github.com/shopspring/decimal"
)

// ChangeKind identifies what mutated in the store.
type ChangeKind string

const (
	ChangeItemAdded       ChangeKind = "item_added"
	ChangeQuantityUpdated ChangeKind = "quantity_updated"
	ChangeItemRemoved     ChangeKind = "item_removed"
	ChangeCleared         ChangeKind = "cleared"
	ChangeDrawerOpened    ChangeKind = "drawer_opened"
	ChangeDrawerClosed    ChangeKind = "drawer_closed"
)

// Change is delivered to subscribers after every mutation or drawer toggle.
type Change struct {
	Kind       ChangeKind
	ProductID  string
	VariantKey string
}

// Listener receives change notifications. Listeners are invoked on the
// mutating goroutine after the store has been updated and persisted.
type Listener func(Change)

// Store is the single source of truth for cart contents within a browsing
// session. Every mutation rewrites the full line list to the persistence
// slot; presentation surfaces observe the store through Subscribe rather
// than through any ambient lookup.
type Store struct {
	mu         sync.Mutex
	lines      []Line
	drawerOpen bool
	slot       storage.Slot
	listeners  []Listener
}

// NewStore creates a cart store backed by the given slot and rehydrates any
// previously persisted lines. Corrupt or unreadable data is logged and
// replaced with an empty cart; it never fails construction.
func NewStore(ctx context.Context, slot storage.Slot) *Store {
	s := &Store{slot: slot}

	data, ok, err := slot.Load(ctx)
	if err != nil {
		log.Printf("[Cart] Failed to load persisted cart: %v", err)
		return s
	}
	if !ok {
		return s
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Printf("[Cart] Discarding corrupt persisted cart: %v", err)
		return s
	}
	// Totals are derived; recompute rather than trust the stored values.
	for i := range lines {
		lines[i].recompute()
	}
	s.lines = lines
	return s
}

// Subscribe registers a listener for change notifications.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddItem appends a line, or merges quantities when a line with the same
// (productID, variantKey) already exists. The drawer is forced open so the
// surfaces observing the store become visible. Quantity is assumed positive
// by the caller.
func (s *Store) AddItem(ctx context.Context, line Line) {
	s.mu.Lock()
	merged := false
	for i := range s.lines {
		if s.lines[i].matches(line.ProductID, line.VariantKey) {
			s.lines[i].Quantity += line.Quantity
			s.lines[i].recompute()
			merged = true
			break
		}
	}
	if !merged {
		line.recompute()
		s.lines = append(s.lines, line)
	}
	s.drawerOpen = true
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeItemAdded, ProductID: line.ProductID, VariantKey: line.VariantKey})
}

// UpdateQuantity sets the quantity of the matching line. A quantity of zero
// or less delegates to RemoveItem. No-op if no line matches.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int, variantKey string) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID, variantKey)
		return
	}

	s.mu.Lock()
	updated := false
	for i := range s.lines {
		if s.lines[i].matches(productID, variantKey) {
			s.lines[i].Quantity = quantity
			s.lines[i].recompute()
			updated = true
			break
		}
	}
	if updated {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if updated {
		s.notify(Change{Kind: ChangeQuantityUpdated, ProductID: productID, VariantKey: variantKey})
	}
}

// RemoveItem deletes the matching line. No-op if no line matches.
func (s *Store) RemoveItem(ctx context.Context, productID, variantKey string) {
	s.mu.Lock()
	removed := false
	for i := range s.lines {
		if s.lines[i].matches(productID, variantKey) {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if removed {
		s.notify(Change{Kind: ChangeItemRemoved, ProductID: productID, VariantKey: variantKey})
	}
}

// Clear empties all lines.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeCleared})
}

// Lines returns a copy of the current lines in stable insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// TotalItems is the sum of all line quantities, recomputed on every access.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.lines)
}

// TotalPrice is the sum of all line totals, recomputed on every access.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.lines)
}

// Snapshot returns the lines together with derived aggregates.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{
		Lines:      lines,
		TotalItems: totalItems(s.lines),
		TotalPrice: totalPrice(s.lines),
	}
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *Store) DrawerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawerOpen
}

func (s *Store) OpenDrawer() {
	s.mu.Lock()
	s.drawerOpen = true
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeDrawerOpened})
}

func (s *Store) CloseDrawer() {
	s.mu.Lock()
	s.drawerOpen = false
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeDrawerClosed})
}

// persistLocked serializes the full line list into the slot. Write failures
// are logged and do not fail the mutation; the in-memory state remains the
// source of truth for the session.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.lines)
	if err != nil {
		log.Printf("[Cart] Failed to serialize cart: %v", err)
		return
	}
	if err := s.slot.Save(ctx, data); err != nil {
		log.Printf("[Cart] Failed to persist cart: %v", err)
	}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
}
