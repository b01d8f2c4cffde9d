package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"ForecastSentinel/internal/model"
)

// LinearEngine fits an ordinary least-squares trend to the input and builds
// the band from empirical residual quantiles. It is the bundled default
// engine; a statistical model can be swapped in through Engine.
type LinearEngine struct {
	// Interval is the band coverage in (0,1); 0 means 0.8.
	Interval float64
}

// NewLinearEngine creates an engine with the given band coverage.
func NewLinearEngine(interval float64) *LinearEngine {
	return &LinearEngine{Interval: interval}
}

func (e *LinearEngine) Forecast(ctx context.Context, points []model.Point, h Horizon) ([]model.ForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	interval := e.Interval
	if interval == 0 {
		interval = 0.8
	}
	if interval <= 0 || interval >= 1 {
		return nil, fmt.Errorf("%w: interval %.3f out of (0,1)", ErrForecastFailure, interval)
	}

	origin := points[0].Time
	step := h.Unit.Step().Hours()
	x := func(p model.Point) float64 { return p.Time.Sub(origin).Hours() / step }

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = x(p), p.Value
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return nil, fmt.Errorf("%w: regression did not converge", ErrForecastFailure)
	}

	residuals := make([]float64, len(points))
	for i := range points {
		residuals[i] = ys[i] - (alpha + beta*xs[i])
	}
	sort.Float64s(residuals)
	tail := (1 - interval) / 2
	lo := stat.Quantile(tail, stat.Empirical, residuals, nil)
	hi := stat.Quantile(1-tail, stat.Empirical, residuals, nil)

	row := func(p model.Point) model.ForecastPoint {
		est := alpha + beta*x(p)
		return model.ForecastPoint{Time: p.Time, Estimate: est, Lower: est + lo, Upper: est + hi, Trend: est}
	}

	out := make([]model.ForecastPoint, 0, len(points)+h.Periods)
	for _, p := range points {
		out = append(out, row(p))
	}
	for _, t := range FutureTimes(points[len(points)-1].Time, h) {
		out = append(out, row(model.Point{Time: t}))
	}
	return out, nil
}
