package calculator

import (
	"fmt"
	"strings"
)

// Alignment selects which point of a window a smoothed value is attached to.
type Alignment string

const (
	// AlignTrailing attaches the value to the last point of the window.
	AlignTrailing Alignment = "trailing"
	// AlignCentered attaches the value to the middle point of an odd window.
	AlignCentered Alignment = "centered"
)

// ParseAlignment maps a config string onto an Alignment; empty means trailing.
func ParseAlignment(s string) (Alignment, error) {
	switch a := Alignment(strings.ToLower(strings.TrimSpace(s))); a {
	case "", AlignTrailing:
		return AlignTrailing, nil
	case AlignCentered:
		return AlignCentered, nil
	default:
		return "", fmt.Errorf("unknown alignment %q", s)
	}
}

// shift returns how many positions a trailing window result must move left.
func (a Alignment) shift(window int) int {
	if a == AlignCentered {
		return window / 2
	}
	return 0
}

// place moves trailing results (index = last point of window) onto the
// requested alignment. Positions not covered by a full window stay nil.
func place(trailing []float64, window int, align Alignment) []*float64 {
	n := len(trailing)
	out := make([]*float64, n)
	s := align.shift(window)
	for i := 0; i < n; i++ {
		src := i + s
		if src < window-1 || src >= n {
			continue
		}
		v := trailing[src]
		out[i] = &v
	}
	return out
}
