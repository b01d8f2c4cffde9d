package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"
)

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("no values for mean")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// RollingMean smooths values with a simple moving average of the given window.
// Positions without a full window are nil.
func RollingMean(values []float64, window int, align Alignment) ([]*float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	if align == AlignCentered && window%2 == 0 {
		return nil, errors.New("centered window must be odd")
	}
	if len(values) < window {
		return make([]*float64, len(values)), nil
	}
	if window == 1 {
		return place(append([]float64(nil), values...), 1, align), nil
	}
	return place(talib.Sma(values, window), window, align), nil
}
