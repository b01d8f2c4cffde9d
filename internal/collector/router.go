package collector

import (
	"context"
	"fmt"

	"ForecastSentinel/internal/model"
)

// Router dispatches a fetch to the source registered for the instrument's provenance.
type Router struct {
	sources map[model.Provenance]Source
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{sources: make(map[model.Provenance]Source)}
}

// Register binds a source to a provenance, replacing any previous binding.
func (r *Router) Register(p model.Provenance, s Source) *Router {
	r.sources[p] = s
	return r
}

func (r *Router) Name() string { return "router" }

// Fetch runs the provenance-specific source and checks the ordering invariant.
func (r *Router) Fetch(ctx context.Context, inst model.Instrument, tf model.Timeframe) (model.PriceSeries, error) {
	src, ok := r.sources[inst.Provenance]
	if !ok {
		return model.PriceSeries{}, fmt.Errorf("no source registered for provenance %q", inst.Provenance)
	}
	series, err := src.Fetch(ctx, inst, tf)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if series.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: %s returned no bars for %s", ErrDataUnavailable, src.Name(), inst.Symbol)
	}
	if err := Validate(series.Bars); err != nil {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", src.Name(), err)
	}
	return series, nil
}
