package page

import (
	"net/url"
	"strconv"
	"strings"
)

// State is the view state the client carries between requests.
type State struct {
	Color    string
	Slide    int
	Offset   int
	CartOpen bool
}

// ParseState reads view state from query or form values. Unparseable numbers fall back to zero.
func ParseState(values url.Values) State {
	return State{
		Color:    strings.TrimSpace(values.Get("color")),
		Slide:    atoiOrZero(values.Get("slide")),
		Offset:   atoiOrZero(values.Get("offset")),
		CartOpen: parseFlag(values.Get("open")),
	}
}

// Values encodes the state using the same keys ParseState reads.
func (s State) Values() url.Values {
	v := url.Values{}
	if s.Color != "" {
		v.Set("color", s.Color)
	}
	if s.Slide != 0 {
		v.Set("slide", strconv.Itoa(s.Slide))
	}
	if s.Offset != 0 {
		v.Set("offset", strconv.Itoa(s.Offset))
	}
	if s.CartOpen {
		v.Set("open", "1")
	}
	return v
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
