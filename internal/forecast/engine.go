package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ForecastSentinel/internal/model"
)

// ErrForecastFailure is returned when the engine fails or its output breaks
// the series contract.
var ErrForecastFailure = errors.New("forecast failure")

// DefaultPeriods is the forecast horizon used when none is configured.
const DefaultPeriods = 90

// Unit is the cadence of forecast periods.
type Unit string

const (
	UnitDay  Unit = "day"
	UnitHour Unit = "hour"
	UnitWeek Unit = "week"
)

// ParseUnit maps a config string onto a Unit; empty means day.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case "", UnitDay:
		return UnitDay, nil
	case UnitHour, UnitWeek:
		return u, nil
	default:
		return "", fmt.Errorf("unknown forecast unit %q", s)
	}
}

// Step returns the length of one period.
func (u Unit) Step() time.Duration {
	switch u {
	case UnitHour:
		return time.Hour
	case UnitWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Horizon describes how far and at which cadence the forecast extends.
type Horizon struct {
	Periods int
	Unit    Unit
	// Weekday anchors weekly periods to a day of the week. Nil keeps the
	// cadence of the last input point.
	Weekday *time.Weekday
}

// DefaultHorizon is 90 daily periods.
func DefaultHorizon() Horizon {
	return Horizon{Periods: DefaultPeriods, Unit: UnitDay}
}

// ForTimeframe returns the horizon with its unit matched to the bar size.
// Weekly horizons are kept as configured.
func (h Horizon) ForTimeframe(tf model.Timeframe) Horizon {
	if h.Unit == UnitWeek {
		return h
	}
	if tf == model.TimeframeHourly {
		h.Unit = UnitHour
	} else {
		h.Unit = UnitDay
	}
	return h
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// FutureTimes returns the Periods timestamps that follow last.
func FutureTimes(last time.Time, h Horizon) []time.Time {
	out := make([]time.Time, 0, h.Periods)
	next := last
	switch {
	case h.Unit == UnitWeek && h.Weekday != nil:
		next = last.AddDate(0, 0, 1)
		for next.Weekday() != *h.Weekday {
			next = next.AddDate(0, 0, 1)
		}
		for i := 0; i < h.Periods; i++ {
			out = append(out, next.AddDate(0, 0, 7*i))
		}
	case h.Unit == UnitHour:
		for i := 1; i <= h.Periods; i++ {
			out = append(out, last.Add(time.Duration(i)*time.Hour))
		}
	default:
		days := 1
		if h.Unit == UnitWeek {
			days = 7
		}
		for i := 1; i <= h.Periods; i++ {
			out = append(out, next.AddDate(0, 0, days*i))
		}
	}
	return out
}

// Engine produces a forecast covering the input domain plus the horizon.
type Engine interface {
	Forecast(ctx context.Context, points []model.Point, h Horizon) ([]model.ForecastPoint, error)
}

// Run calls the engine and checks the output contract. Any failure is
// reported as ErrForecastFailure.
func Run(ctx context.Context, e Engine, points []model.Point, h Horizon) ([]model.ForecastPoint, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrForecastFailure, len(points))
	}
	if h.Periods <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ErrForecastFailure, h.Periods)
	}
	out, err := e.Forecast(ctx, points, h)
	if err != nil {
		if errors.Is(err, ErrForecastFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrForecastFailure, err)
	}
	if err := Check(out, len(points), h); err != nil {
		return nil, err
	}
	return out, nil
}

// Check validates engine output length and ordering.
func Check(out []model.ForecastPoint, inputLen int, h Horizon) error {
	if want := inputLen + h.Periods; len(out) != want {
		return fmt.Errorf("%w: got %d points, want %d", ErrForecastFailure, len(out), want)
	}
	for i := 1; i < len(out); i++ {
		if !out[i].Time.After(out[i-1].Time) {
			return fmt.Errorf("%w: point %d at %s not after %s", ErrForecastFailure, i, out[i].Time, out[i-1].Time)
		}
	}
	return nil
}

// PointsFromCloses converts bars into (time, close) engine input.
func PointsFromCloses(bars []model.Bar) []model.Point {
	points := make([]model.Point, len(bars))
	for i, b := range bars {
		points[i] = model.Point{Time: b.Time, Value: b.Close}
	}
	return points
}
