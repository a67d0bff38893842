package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/catalog"
	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/storage"
)

// StorageKey is the fixed key holding the serialized cart.
const StorageKey = "cart"

var (
	// ErrNoColorSelected indicates add-to-cart was attempted without a chosen color.
	ErrNoColorSelected = errors.New("cart: no color selected")
	// ErrUnknownColor indicates the chosen color is not a variant of the product.
	ErrUnknownColor = errors.New("cart: unknown color")
	// ErrMalformed indicates the stored cart could not be decoded.
	ErrMalformed = errors.New("cart: malformed stored cart")
)

// Item is one cart line. Two lines never share the same name and color.
type Item struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Color    string
	Quantity int
	Image    string
}

// Subtotal is price × quantity for the line.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Summary aggregates the cart for display.
type Summary struct {
	Count int
	Total decimal.Decimal
}

// itemJSON is the stored wire shape; price is a bare JSON number.
type itemJSON struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Color    string      `json:"color"`
	Quantity int         `json:"quantity"`
	Image    string      `json:"image"`
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used to generate line identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store owns the cart lines and writes them through to local storage on every mutation.
type Store struct {
	local storage.Local
	now   func() time.Time
	items []Item
}

// Load restores the cart from local storage. A missing value yields an empty cart. A malformed
// value is logged and replaced by an empty cart so the page stays usable.
func Load(ctx context.Context, local storage.Local, opts ...Option) *Store {
	s := &Store{local: local, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok := local.GetItem(StorageKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return s
	}
	items, dropped, err := decode(raw)
	logger := observability.FromContext(ctx)
	if err != nil {
		logger.Warn("stored cart is malformed; starting with an empty cart", zap.Error(err))
		return s
	}
	if dropped > 0 {
		logger.Warn("dropped cart lines with invalid quantity", zap.Int("dropped", dropped))
	}
	s.items = items
	return s
}

func decode(raw string) ([]Item, int, error) {
	var wire []itemJSON
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	items := make([]Item, 0, len(wire))
	dropped := 0
	for _, w := range wire {
		if w.Quantity < 1 {
			dropped++
			continue
		}
		price, err := decimal.NewFromString(string(w.Price))
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d price %q", ErrMalformed, w.ID, w.Price)
		}
		items = append(items, Item{
			ID:       w.ID,
			Name:     w.Name,
			Price:    price,
			Color:    w.Color,
			Quantity: w.Quantity,
			Image:    w.Image,
		})
	}
	return items, dropped, nil
}

// Add puts one unit of product in the given color into the cart. A matching line gets its
// quantity incremented; otherwise a new line is appended. The cart is left untouched when the
// write to storage fails.
func (s *Store) Add(product catalog.Product, colorKey string) (Item, error) {
	colorKey = strings.TrimSpace(colorKey)
	if colorKey == "" {
		return Item{}, ErrNoColorSelected
	}
	color, ok := product.Color(colorKey)
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownColor, colorKey)
	}

	next := s.Items()
	for i := range next {
		if next[i].Name == product.Name && next[i].Color == colorKey {
			next[i].Quantity++
			if err := s.commit(next); err != nil {
				return Item{}, err
			}
			return next[i], nil
		}
	}

	item := Item{
		ID:       s.nextID(),
		Name:     product.Name,
		Price:    product.Price,
		Color:    colorKey,
		Quantity: 1,
	}
	if len(color.Images) > 0 {
		item.Image = color.Images[0]
	}
	next = append(next, item)
	if err := s.commit(next); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Remove deletes the line with the given id. Unknown ids leave the lines as they are but the
// cart is still written back.
func (s *Store) Remove(id int64) error {
	next := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if item.ID != id {
			next = append(next, item)
		}
	}
	return s.commit(next)
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int { return len(s.items) }

// Summary sums quantities and line subtotals.
func (s *Store) Summary() Summary {
	sum := Summary{Total: decimal.Zero}
	for _, item := range s.items {
		sum.Count += item.Quantity
		sum.Total = sum.Total.Add(item.Subtotal())
	}
	return sum
}

// MarshalJSON encodes the lines in their stored wire format.
func (s *Store) MarshalJSON() ([]byte, error) {
	return encode(s.items)
}

func (s *Store) commit(next []Item) error {
	data, err := encode(next)
	if err != nil {
		return err
	}
	if err := s.local.SetItem(StorageKey, string(data)); err != nil {
		return fmt.Errorf("cart: persist: %w", err)
	}
	s.items = next
	return nil
}

func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	for s.hasID(id) {
		id++
	}
	return id
}

func (s *Store) hasID(id int64) bool {
	for _, item := range s.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func encode(items []Item) ([]byte, error) {
	wire := make([]itemJSON, 0, len(items))
	for _, item := range items {
		wire = append(wire, itemJSON{
			ID:       item.ID,
			Name:     item.Name,
			Price:    json.Number(item.Price.String()),
			Color:    item.Color,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return json.Marshal(wire)
}
