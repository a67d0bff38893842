package page

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnhandledEvent is returned when no handler is registered for an event.
var ErrUnhandledEvent = errors.New("page: unhandled event")

// Kind is the capability an event was raised through.
type Kind string

const (
	KindChange Kind = "change"
	KindClick  Kind = "click"
	KindSwipe  Kind = "swipe"
)

// Target names an interactive element of the page.
type Target string

const (
	TargetColor        Target = "color"
	TargetSlidePrev    Target = "slide-prev"
	TargetSlideNext    Target = "slide-next"
	TargetSlider       Target = "slider"
	TargetReviewsLeft  Target = "reviews-left"
	TargetReviewsRight Target = "reviews-right"
	TargetReviews      Target = "reviews"
	TargetAddToCart    Target = "add-to-cart"
	TargetCartToggle   Target = "cart-toggle"
	TargetCartRemove   Target = "cart-remove"
)

// Region is a renderable part of the page that can be swapped independently.
type Region string

const (
	RegionColors     Region = "colors"
	RegionColorError Region = "color-error"
	RegionSlider     Region = "slider"
	RegionReviews    Region = "reviews"
	RegionAddButton  Region = "add-button"
	RegionCart       Region = "cart"
)

// Event is one user interaction.
type Event struct {
	Kind   Kind
	Target Target
	Value  string
	StartX float64
	EndX   float64
}

func (e Event) String() string {
	return string(e.Kind) + ":" + string(e.Target)
}

// Handler applies an event to the session and names the regions to re-render.
type Handler func(ctx context.Context, s *Session, ev Event) ([]Region, error)

type handlerKey struct {
	kind   Kind
	target Target
}

// Controller routes events to handlers registered per capability and target.
type Controller struct {
	handlers map[handlerKey]Handler
}

// NewController returns a controller with no handlers.
func NewController() *Controller {
	return &Controller{handlers: make(map[handlerKey]Handler)}
}

// OnChange registers h for value changes on target.
func (c *Controller) OnChange(target Target, h Handler) { c.on(KindChange, target, h) }

// OnClick registers h for clicks on target.
func (c *Controller) OnClick(target Target, h Handler) { c.on(KindClick, target, h) }

// OnSwipe registers h for horizontal swipes on target.
func (c *Controller) OnSwipe(target Target, h Handler) { c.on(KindSwipe, target, h) }

func (c *Controller) on(kind Kind, target Target, h Handler) {
	c.handlers[handlerKey{kind: kind, target: target}] = h
}

// Handles reports whether an event would reach a handler.
func (c *Controller) Handles(kind Kind, target Target) bool {
	_, ok := c.handlers[handlerKey{kind: kind, target: target}]
	return ok
}

// Dispatch runs the handler for ev. Regions are returned even alongside an error so the caller
// can render inline feedback.
func (c *Controller) Dispatch(ctx context.Context, s *Session, ev Event) ([]Region, error) {
	h, ok := c.handlers[handlerKey{kind: ev.Kind, target: ev.Target}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, ev)
	}
	regions, err := h(ctx, s, ev)
	return dedupe(regions), err
}

// DefaultController wires the product page interactions.
func DefaultController() *Controller {
	c := NewController()

	c.OnChange(TargetColor, func(_ context.Context, s *Session, ev Event) ([]Region, error) {
		if err := s.SelectColor(ev.Value); err != nil {
			return nil, err
		}
		return []Region{RegionColors, RegionColorError, RegionSlider}, nil
	})

	slide := func(dir int) Handler {
		return func(_ context.Context, s *Session, _ Event) ([]Region, error) {
			s.Slider.Step(dir)
			return []Region{RegionSlider}, nil
		}
	}
	c.OnClick(TargetSlidePrev, slide(-1))
	c.OnClick(TargetSlideNext, slide(1))
	c.OnSwipe(TargetSlider, func(_ context.Context, s *Session, ev Event) ([]Region, error) {
		dir, ok := Swipe(ev.StartX, ev.EndX)
		if !ok {
			return nil, nil
		}
		s.Slider.Step(dir)
		return []Region{RegionSlider}, nil
	})

	scroll := func(dir int) Handler {
		return func(_ context.Context, s *Session, _ Event) ([]Region, error) {
			s.Reviews.Scroll(dir)
			return []Region{RegionReviews}, nil
		}
	}
	c.OnClick(TargetReviewsLeft, scroll(-1))
	c.OnClick(TargetReviewsRight, scroll(1))
	c.OnSwipe(TargetReviews, func(_ context.Context, s *Session, ev Event) ([]Region, error) {
		dir, ok := Swipe(ev.StartX, ev.EndX)
		if !ok {
			return nil, nil
		}
		s.Reviews.Scroll(dir)
		return []Region{RegionReviews}, nil
	})

	c.OnClick(TargetAddToCart, func(_ context.Context, s *Session, ev Event) ([]Region, error) {
		if _, err := s.AddToCart(ev.Value); err != nil {
			return []Region{RegionColorError}, err
		}
		return []Region{RegionColorError, RegionAddButton, RegionCart}, nil
	})

	c.OnClick(TargetCartToggle, func(_ context.Context, s *Session, _ Event) ([]Region, error) {
		s.CartOpen = !s.CartOpen
		return []Region{RegionCart}, nil
	})

	c.OnClick(TargetCartRemove, func(_ context.Context, s *Session, ev Event) ([]Region, error) {
		id, err := strconv.ParseInt(strings.TrimSpace(ev.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line id %q", ErrInvalidEvent, ev.Value)
		}
		if err := s.Cart.Remove(id); err != nil {
			return nil, err
		}
		return []Region{RegionCart}, nil
	})

	return c
}

func dedupe(regions []Region) []Region {
	if len(regions) < 2 {
		return regions
	}
	seen := make(map[Region]struct{}, len(regions))
	out := regions[:0:0]
	for _, r := range regions {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
