package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/shopspring/decimal"
)

// StorageKey is the key the full item list is persisted under.
const StorageKey = "cart"

var (
	ErrMalformedCart = errors.New("malformed cart data")
	ErrInvalidItem   = errors.New("invalid cart item")
	ErrItemNotFound  = errors.New("item not found in cart")
)

// Store is the cart model. Every mutation rewrites the whole item list to
// storage; there are no partial writes.
type Store struct {
	storage Storage
	items   []domain.CartItem
}

// Open loads the cart persisted in storage. A missing key yields an empty cart.
func Open(storage Storage) (*Store, error) {
	raw, ok, err := storage.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	s := &Store{storage: storage}
	if !ok {
		return s, nil
	}
	items, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	s.items = items
	return s, nil
}

// Parse decodes and validates a serialized item list.
func Parse(raw []byte) ([]domain.CartItem, error) {
	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}
	for i := range items {
		if err := normalize(&items[i]); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedCart, i, err)
		}
	}
	return items, nil
}

func normalize(item *domain.CartItem) error {
	if item.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if item.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidItem)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	// half-up to cents
	item.Price = item.Price.Round(2)
	return nil
}

// Items returns a copy of the current lines.
func (s *Store) Items() []domain.CartItem {
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// AddItem appends the item, or adds its quantity to an existing line with
// the same id and the same customization.
func (s *Store) AddItem(item domain.CartItem) error {
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if err := normalize(&item); err != nil {
		return err
	}
	for i := range s.items {
		if sameLine(s.items[i], item) {
			s.items[i].Quantity += item.Quantity
			return s.persist()
		}
	}
	s.items = append(s.items, item)
	return s.persist()
}

func sameLine(a, b domain.CartItem) bool {
	if a.ID != b.ID {
		return false
	}
	aGood, aBad := a.CustomOptions.Emojis()
	bGood, bBad := b.CustomOptions.Emojis()
	return aGood == bGood && aBad == bBad && variant(a) == variant(b)
}

func variant(item domain.CartItem) string {
	if item.CustomOptions == nil {
		return ""
	}
	return item.CustomOptions.Variant
}

func (s *Store) RemoveItem(id string) error {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
	return s.persist()
}

// UpdateQuantity sets the line quantity; qty <= 0 removes the line.
func (s *Store) UpdateQuantity(id string, qty int) error {
	if qty <= 0 {
		return s.RemoveItem(id)
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = qty
			return s.persist()
		}
	}
	return ErrItemNotFound
}

func (s *Store) ClearCart() error {
	s.items = nil
	if err := s.storage.Delete(StorageKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Store) TotalItems() int {
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

func (s *Store) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (s *Store) persist() error {
	items := s.items
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.storage.Set(StorageKey, data); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}
