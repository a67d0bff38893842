package page

// Slider cycles through the images of the active color. Exactly one image is active.
type Slider struct {
	Images []string
	index  int
}

// NewSlider starts at the first image.
func NewSlider(images []string) Slider {
	return Slider{Images: images}
}

// Step moves by dir with wraparound.
func (s *Slider) Step(dir int) {
	n := len(s.Images)
	if n == 0 {
		return
	}
	s.index = ((s.index+dir)%n + n) % n
}

// Seek jumps to i, wrapping out-of-range values into the sequence.
func (s *Slider) Seek(i int) {
	s.index = 0
	s.Step(i)
}

// Index is the active position.
func (s Slider) Index() int { return s.index }

// Len is the number of images.
func (s Slider) Len() int { return len(s.Images) }

// Active returns the active image, or "" for an empty slider.
func (s Slider) Active() string {
	if len(s.Images) == 0 {
		return ""
	}
	return s.Images[s.index]
}
