// Package resolver answers "which county contains this point" against an
// immutable boundary store and its spatial grid.
package resolver

import (
	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/metrics"
	"github.com/sells-group/county-api/internal/spatial"
)

// Result is the county containing a point. Found is false for points in no
// county (ocean, foreign territory, unmapped area); that is not an error.
type Result struct {
	FIPS  string
	Name  string
	Found bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables the in-memory result cache.
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger overrides the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// Resolver performs grid-filtered exact containment tests. It is safe for
// concurrent use.
type Resolver struct {
	store *boundary.Store
	grid  *spatial.Grid
	cache *Cache
	log   *zap.Logger

	// invalid[i] is the validation error of county ordinal i, computed once.
	invalid []error
}

// New creates a Resolver. Every county is validated up front; malformed ones
// stay in the store and are skipped at query time.
func New(store *boundary.Store, grid *spatial.Grid, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		grid:    grid,
		log:     zap.L().With(zap.String("component", "resolver")),
		invalid: make([]error, store.Len()),
	}
	for _, o := range opts {
		o(r)
	}

	var malformed int
	for i, c := range store.All() {
		if err := validateCounty(c); err != nil {
			r.invalid[i] = err
			malformed++
			r.log.Warn("malformed county boundary", zap.Error(err))
		}
	}
	if malformed > 0 {
		r.log.Warn("counties with malformed boundaries will be skipped", zap.Int("count", malformed))
	}
	return r
}

// Resolve returns the county containing (lat, lon). Out-of-range input
// returns an *InvalidInputError. When several counties contain the point
// (shared border) the one with the lowest FIPS code wins.
func (r *Resolver) Resolve(lat, lon float64) (Result, error) {
	if err := validatePoint(lat, lon); err != nil {
		metrics.ResolveTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return Result{}, err
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(lat, lon); ok {
			observe(res)
			return res, nil
		}
	}

	res := r.resolve(boundary.Point{Lat: lat, Lon: lon})
	if r.cache != nil {
		r.cache.Put(lat, lon, res)
	}
	observe(res)
	return res, nil
}

func (r *Resolver) resolve(p boundary.Point) Result {
	cands := r.grid.Query(p)
	metrics.ResolveCandidates.Observe(float64(len(cands)))

	for _, ord := range cands {
		c := r.store.At(ord)
		ct := r.containment(ord, p)
		if ct.Err != nil {
			metrics.MalformedCandidatesTotal.Inc()
			r.log.Debug("skipping malformed candidate",
				zap.String("fips", c.FIPS),
				zap.Error(ct.Err),
			)
			continue
		}
		if ct.Inside {
			return Result{FIPS: c.FIPS, Name: c.Name, Found: true}
		}
	}
	return Result{}
}

// containment tests county ordinal ord using the validation done in New.
func (r *Resolver) containment(ord int, p boundary.Point) Containment {
	if err := r.invalid[ord]; err != nil {
		return Containment{Err: err}
	}
	return Containment{Inside: containsValid(r.store.At(ord), p)}
}

// Cache returns the result cache, or nil when caching is off.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Malformed returns the validation error of every county that is skipped at
// query time, in FIPS order.
func (r *Resolver) Malformed() []error {
	var out []error
	for _, err := range r.invalid {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func validatePoint(lat, lon float64) *InvalidInputError {
	// NaN fails both comparisons.
	if !(lat >= -90 && lat <= 90) {
		return &InvalidInputError{Field: "lat", Value: lat}
	}
	if !(lon >= -180 && lon <= 180) {
		return &InvalidInputError{Field: "lon", Value: lon}
	}
	return nil
}

func observe(res Result) {
	if res.Found {
		metrics.ResolveTotal.WithLabelValues(metrics.OutcomeMatch).Inc()
		return
	}
	metrics.ResolveTotal.WithLabelValues(metrics.OutcomeNoMatch).Inc()
}
