package page

const (
	// DefaultCardGap is the spacing between review cards in pixels.
	DefaultCardGap = 40
	// DefaultCardWidth matches the card width in product.css.
	DefaultCardWidth = 280
)

// Carousel is the review strip measured in cards.
type Carousel struct {
	Count     int
	Visible   int
	Offset    int
	CardWidth int
	Gap       int
}

// NewCarousel builds a strip of count cards showing visible at a time, clamping offset.
func NewCarousel(count, visible, offset int) Carousel {
	if visible < 1 {
		visible = 1
	}
	c := Carousel{
		Count:     count,
		Visible:   visible,
		CardWidth: DefaultCardWidth,
		Gap:       DefaultCardGap,
	}
	c.Offset = c.clamp(offset)
	return c
}

// Scroll moves one card in dir, stopping at either end.
func (c *Carousel) Scroll(dir int) {
	switch {
	case dir > 0:
		c.Offset = c.clamp(c.Offset + 1)
	case dir < 0:
		c.Offset = c.clamp(c.Offset - 1)
	}
}

// ShowLeft reports whether the strip can scroll back.
func (c Carousel) ShowLeft() bool { return c.Offset > 0 }

// ShowRight reports whether cards remain past the visible window.
func (c Carousel) ShowRight() bool { return c.Offset+c.Visible < c.Count }

// StepPx is the scroll distance for one card.
func (c Carousel) StepPx() int { return c.CardWidth + c.Gap }

// ScrollPx is the pixel offset of the current position.
func (c Carousel) ScrollPx() int { return c.Offset * c.StepPx() }

func (c Carousel) clamp(offset int) int {
	maxOffset := c.Count - c.Visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	if offset < 0 {
		return 0
	}
	return offset
}
