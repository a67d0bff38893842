package page

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/cart"
	"finitefield.org/zephyr-web/internal/catalog"
	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/storage"
)

// ErrInvalidEvent indicates an event carried a value the session cannot act on.
var ErrInvalidEvent = errors.New("page: invalid event value")

// ColorError is the inline message shown next to the color selector.
type ColorError int

const (
	ColorErrorNone ColorError = iota
	// ColorErrorRequired asks the shopper to pick a color before adding to the cart.
	ColorErrorRequired
	// ColorErrorUnavailable marks a product with no color variants.
	ColorErrorUnavailable
)

// MessageKey returns the i18n key for the message, or "" when nothing is shown.
func (e ColorError) MessageKey() string {
	switch e {
	case ColorErrorRequired:
		return "product.color_required"
	case ColorErrorUnavailable:
		return "product.unavailable"
	}
	return ""
}

const defaultReviewsVisible = 3

// SessionOption customises NewSession.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	reviewsVisible int
	cartOptions    []cart.Option
}

// WithReviewsVisible sets how many review cards fit in the strip.
func WithReviewsVisible(n int) SessionOption {
	return func(o *sessionOptions) {
		if n > 0 {
			o.reviewsVisible = n
		}
	}
}

// WithCartOptions forwards options to the cart store.
func WithCartOptions(opts ...cart.Option) SessionOption {
	return func(o *sessionOptions) {
		o.cartOptions = append(o.cartOptions, opts...)
	}
}

// Session owns the state of one page view. Rendering reads it and nothing else.
type Session struct {
	Product    catalog.Product
	Color      string
	Slider     Slider
	Reviews    Carousel
	Cart       *cart.Store
	CartOpen   bool
	ColorError ColorError

	// Highlight is the swatch that was just chosen and plays the selection animation.
	Highlight string
	// Added switches the add button to its confirmation state for one render.
	Added bool
}

// NewSession loads the product and restores the client's view state.
func NewSession(ctx context.Context, repo catalog.Repository, id string, local storage.Local, state State, opts ...SessionOption) (*Session, error) {
	options := sessionOptions{reviewsVisible: defaultReviewsVisible}
	for _, opt := range opts {
		opt(&options)
	}

	product, err := repo.Product(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Product:  product,
		Cart:     cart.Load(ctx, local, options.cartOptions...),
		Reviews:  NewCarousel(len(product.Reviews), options.reviewsVisible, state.Offset),
		CartOpen: state.CartOpen,
	}

	if len(product.Colors) == 0 {
		observability.FromContext(ctx).Error("no colors available for product", zap.String("product_id", product.ID))
		s.ColorError = ColorErrorUnavailable
		return s, nil
	}

	color, ok := product.Color(state.Color)
	if !ok {
		color = product.Colors[0]
	}
	s.Color = color.Key
	s.Slider = NewSlider(color.Images)
	s.Slider.Seek(state.Slide)
	return s, nil
}

// State captures the session's view state for the next request.
func (s *Session) State() State {
	return State{
		Color:    s.Color,
		Slide:    s.Slider.Index(),
		Offset:   s.Reviews.Offset,
		CartOpen: s.CartOpen,
	}
}

// Available reports whether the product can be configured and added to the cart.
func (s *Session) Available() bool {
	return len(s.Product.Colors) > 0
}

// SelectColor switches the active color and rebuilds the slider at its first image.
func (s *Session) SelectColor(key string) error {
	color, ok := s.Product.Color(key)
	if !ok {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidEvent, key)
	}
	s.Color = color.Key
	s.Slider = NewSlider(color.Images)
	s.ColorError = ColorErrorNone
	s.Highlight = color.Key
	return nil
}

// AddToCart adds the product in the given color. A missing color sets the inline error and
// leaves the cart untouched.
func (s *Session) AddToCart(colorKey string) (cart.Item, error) {
	item, err := s.Cart.Add(s.Product, colorKey)
	switch {
	case errors.Is(err, cart.ErrNoColorSelected):
		if s.Available() {
			s.ColorError = ColorErrorRequired
		}
		return cart.Item{}, err
	case errors.Is(err, cart.ErrUnknownColor):
		return cart.Item{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	case err != nil:
		return cart.Item{}, err
	}
	s.ColorError = ColorErrorNone
	s.Added = true
	return item, nil
}
