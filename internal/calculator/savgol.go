package calculator

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavGol applies a Savitzky-Golay filter: a least-squares polynomial of the
// given degree is fitted over each window and evaluated at the aligned point.
// Positions without a full window are nil.
func SavGol(values []float64, window, degree int, align Alignment) ([]*float64, error) {
	if window <= 0 || window%2 == 0 {
		return nil, errors.New("savgol window must be a positive odd number")
	}
	if degree < 0 || degree >= window {
		return nil, fmt.Errorf("savgol degree %d must be in [0, %d)", degree, window)
	}
	if len(values) < window {
		return make([]*float64, len(values)), nil
	}

	coeffs, err := savgolCoefficients(window, degree, align)
	if err != nil {
		return nil, err
	}

	trailing := make([]float64, len(values))
	for end := window - 1; end < len(values); end++ {
		start := end - window + 1
		sum := 0.0
		for j, c := range coeffs {
			sum += c * values[start+j]
		}
		trailing[end] = sum
	}
	return place(trailing, window, align), nil
}

// savgolCoefficients returns the convolution weights that evaluate the fitted
// polynomial at the aligned point of the window.
func savgolCoefficients(window, degree int, align Alignment) ([]float64, error) {
	// x = 0 is the point the value is attached to.
	first := -(window - 1)
	if align == AlignCentered {
		first = -(window / 2)
	}

	cols := degree + 1
	a := mat.NewDense(window, cols, nil)
	for i := 0; i < window; i++ {
		x := float64(first + i)
		p := 1.0
		for k := 0; k < cols; k++ {
			a.Set(i, k, p)
			p *= x
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("savgol normal matrix: %w", err)
	}
	var pinv mat.Dense
	pinv.Mul(&inv, a.T())

	coeffs := make([]float64, window)
	copy(coeffs, pinv.RawRowView(0))
	return coeffs, nil
}
