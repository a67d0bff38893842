package page

import "math"

// SwipeThreshold is the horizontal displacement in pixels a touch must exceed to count as a swipe.
const SwipeThreshold = 50

// Swipe converts touch start and end positions into a navigation direction. A swipe to the left
// moves forward. Non-finite positions never count as a swipe.
func Swipe(startX, endX float64) (int, bool) {
	diff := startX - endX
	if math.IsInf(diff, 0) || !(math.Abs(diff) > SwipeThreshold) {
		return 0, false
	}
	if diff > 0 {
		return 1, true
	}
	return -1, true
}
