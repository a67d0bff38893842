package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrProductNotFound is returned when the requested product id is not in the catalog.
var ErrProductNotFound = errors.New("catalog: product not found")

// Repository resolves products by identifier.
type Repository interface {
	Product(ctx context.Context, id string) (Product, error)
}

// Product is an immutable catalog record.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	OldPrice    *decimal.Decimal
	Description string
	// Details is optional Markdown shown below the description.
	Details  string
	Features []string
	// Colors keeps the order of the catalog file so the first color is deterministic.
	Colors   []Color
	Reviews  []Review
	Similar  []string
	Payments []string
}

// Color is one variant of a product.
type Color struct {
	Key    string
	Name   string
	Swatch string
	Images []string
}

// Review is a customer review attached to a product.
type Review struct {
	Author string
	Rating int
	Text   string
	Photos []string
}

// Color looks up a variant by key.
func (p Product) Color(key string) (Color, bool) {
	for _, c := range p.Colors {
		if c.Key == key {
			return c, true
		}
	}
	return Color{}, false
}

// FirstColor returns the first variant in catalog order.
func (p Product) FirstColor() (Color, bool) {
	if len(p.Colors) == 0 {
		return Color{}, false
	}
	return p.Colors[0], true
}

// CoverImage is the first image of the first color, used by listings.
func (p Product) CoverImage() string {
	c, ok := p.FirstColor()
	if !ok || len(c.Images) == 0 {
		return ""
	}
	return c.Images[0]
}

// HasOldPrice reports whether a former price should be displayed.
func (p Product) HasOldPrice() bool {
	return p.OldPrice != nil
}

// AverageRating returns the mean review rating and the review count.
func (p Product) AverageRating() (decimal.Decimal, int) {
	if len(p.Reviews) == 0 {
		return decimal.Zero, 0
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	avg := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(p.Reviews)))).Round(1)
	return avg, len(p.Reviews)
}

// Static is an in-memory repository whose contents can be swapped atomically.
type Static struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

// NewStatic builds a repository holding the given products.
func NewStatic(products ...Product) *Static {
	s := &Static{}
	s.Replace(products)
	return s
}

// Product implements Repository.
func (s *Static) Product(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	s.mu.RLock()
	p, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrProductNotFound, id)
	}
	return p, nil
}

// IDs lists product identifiers in catalog order.
func (s *Static) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of products.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// Replace swaps the full product set. Readers see either the old or the new set, never a mix.
func (s *Static) Replace(products []Product) {
	next := make(map[string]Product, len(products))
	order := make([]string, 0, len(products))
	for _, p := range products {
		if _, dup := next[p.ID]; !dup {
			order = append(order, p.ID)
		}
		next[p.ID] = p
	}

	s.mu.Lock()
	s.products = next
	s.order = order
	s.mu.Unlock()
}
