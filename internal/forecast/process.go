package forecast

import (
	"fmt"
	"strings"

	"ForecastSentinel/internal/calculator"
	"ForecastSentinel/internal/model"
)

// Kind selects the smoothing filter.
type Kind string

const (
	KindSMA    Kind = "sma"
	KindSavGol Kind = "savgol"
)

// Smoothing configures the post-processor.
type Smoothing struct {
	Kind      Kind                 `yaml:"kind"`
	Window    int                  `yaml:"window"`
	Degree    *int                 `yaml:"degree"`
	Alignment calculator.Alignment `yaml:"alignment"`
}

const defaultSavGolDegree = 2

// PolyDegree returns a savgol degree for Smoothing literals.
func PolyDegree(d int) *int { return &d }

// DefaultSMA is a trailing 7-period moving average.
func DefaultSMA() Smoothing {
	return Smoothing{Kind: KindSMA, Window: 7, Alignment: calculator.AlignTrailing}
}

// DefaultSavGol is a trailing window-31, degree-2 polynomial filter.
func DefaultSavGol() Smoothing {
	return Smoothing{Kind: KindSavGol, Window: 31, Degree: PolyDegree(defaultSavGolDegree), Alignment: calculator.AlignTrailing}
}

// Normalize fills the kind defaults for unset fields and canonicalises the
// kind and alignment spelling. An explicit degree of 0 is kept.
func (s Smoothing) Normalize() Smoothing {
	s.Kind = Kind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	if s.Kind == "" {
		s.Kind = KindSMA
	}
	if s.Window == 0 {
		if s.Kind == KindSavGol {
			s.Window = 31
		} else {
			s.Window = 7
		}
	}
	if s.Kind == KindSavGol && s.Degree == nil {
		s.Degree = PolyDegree(defaultSavGolDegree)
	}
	if a, err := calculator.ParseAlignment(string(s.Alignment)); err == nil {
		s.Alignment = a
	}
	return s
}

// Validate checks window and degree constraints for the configured kind.
func (s Smoothing) Validate() error {
	align, err := calculator.ParseAlignment(string(s.Alignment))
	if err != nil {
		return err
	}
	if s.Window <= 0 {
		return fmt.Errorf("smoothing window must be positive, got %d", s.Window)
	}
	switch s.Kind {
	case KindSMA:
		if align == calculator.AlignCentered && s.Window%2 == 0 {
			return fmt.Errorf("centered sma window must be odd, got %d", s.Window)
		}
	case KindSavGol:
		if s.Window%2 == 0 {
			return fmt.Errorf("savgol window must be odd, got %d", s.Window)
		}
		if d := s.degree(); d < 0 || d >= s.Window {
			return fmt.Errorf("savgol degree %d must be below window %d", d, s.Window)
		}
	default:
		return fmt.Errorf("unknown smoothing kind %q", s.Kind)
	}
	return nil
}

func (s Smoothing) degree() int {
	if s.Degree == nil {
		return defaultSavGolDegree
	}
	return *s.Degree
}

func (s Smoothing) apply(values []float64) ([]*float64, error) {
	if s.Kind == KindSavGol {
		return calculator.SavGol(values, s.Window, s.degree(), s.Alignment)
	}
	return calculator.RollingMean(values, s.Window, s.Alignment)
}

// Process smooths the estimate and both bounds independently and trims the
// forecast down to the columns the merger needs. Crossed bounds are kept as is.
func Process(raw []model.ForecastPoint, s Smoothing) ([]model.SmoothedPoint, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	n := len(raw)
	est := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i, p := range raw {
		est[i], lower[i], upper[i] = p.Estimate, p.Lower, p.Upper
	}

	predicted, err := s.apply(est)
	if err != nil {
		return nil, fmt.Errorf("smooth estimate: %w", err)
	}
	lowerBand, err := s.apply(lower)
	if err != nil {
		return nil, fmt.Errorf("smooth lower: %w", err)
	}
	upperBand, err := s.apply(upper)
	if err != nil {
		return nil, fmt.Errorf("smooth upper: %w", err)
	}

	out := make([]model.SmoothedPoint, n)
	for i, p := range raw {
		out[i] = model.SmoothedPoint{
			Time:      p.Time,
			Predicted: predicted[i],
			LowerBand: lowerBand[i],
			UpperBand: upperBand[i],
			Trend:     model.Float(p.Trend),
		}
	}
	return out, nil
}
