// Package workflow orchestrates the service-area pipeline: resolve facility
// addresses to coordinates, submit solves, and convert responses into typed
// polygon sets. Solves are strictly sequential; only geocoding of multiple
// facilities runs with bounded concurrency.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/drivetime-cli/internal/cache"
	"github.com/sells-group/drivetime-cli/internal/resilience"
	"github.com/sells-group/drivetime-cli/internal/servicearea"
	"github.com/sells-group/drivetime-cli/pkg/gis"
)

// Client is the subset of the platform client the workflow needs.
type Client interface {
	Geocode(ctx context.Context, query string) (*gis.Candidate, error)
	TravelModes(ctx context.Context) ([]gis.TravelMode, error)
	SolveServiceArea(ctx context.Context, req gis.SolveRequest) (*gis.SolveResult, error)
}

// Workflow runs solve requests against a platform client.
type Workflow struct {
	client             Client
	geocodeCache       *cache.GeocodeCache
	cacheTTL           time.Duration
	retry              resilience.RetryConfig
	breaker            *resilience.CircuitBreaker
	geocodeConcurrency int
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithGeocodeCache enables the local geocode cache with the given TTL.
func WithGeocodeCache(c *cache.GeocodeCache, ttl time.Duration) Option {
	return func(w *Workflow) {
		w.geocodeCache = c
		w.cacheTTL = ttl
	}
}

// WithRetry sets the retry policy for platform calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(w *Workflow) { w.retry = cfg }
}

// WithCircuitBreaker guards solver calls with a circuit breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(w *Workflow) { w.breaker = cb }
}

// WithGeocodeConcurrency bounds concurrent geocode requests. Default: 4.
func WithGeocodeConcurrency(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.geocodeConcurrency = n
		}
	}
}

// New creates a Workflow around a platform client.
func New(client Client, opts ...Option) *Workflow {
	w := &Workflow{
		client:             client,
		retry:              resilience.DefaultRetryConfig(),
		geocodeConcurrency: 4,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Request describes one solve: which facilities, which rings, and when.
type Request struct {
	// Facilities are free-text addresses, geocoded before the solve.
	Facilities []string
	// Breaks are drive-time thresholds in minutes.
	Breaks    []float64
	Direction gis.TravelDirection
	// TravelMode selects a mode by name from the server catalog. Empty
	// uses the server default.
	TravelMode     string
	TimeOfDay      *time.Time
	TimeOfDayIsUTC bool
}

// Result is one solved polygon set with its resolved facilities.
type Result struct {
	RunID      string
	Facilities []servicearea.Facility
	Polygons   []servicearea.Polygon
}

// FrameResult is one time-of-day sample's polygon set.
type FrameResult struct {
	TimeOfDay time.Time
	Label     string
	Polygons  []servicearea.Polygon
}

// SweepResult holds one frame per requested time-of-day sample, in input
// order.
type SweepResult struct {
	RunID      string
	Facilities []servicearea.Facility
	Frames     []FrameResult
}

// Solve runs one full solve: geocode, solve, convert, validate.
func (w *Workflow) Solve(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))

	facilities, err := w.ResolveFacilities(ctx, req.Facilities)
	if err != nil {
		return nil, err
	}
	log.Info("facilities resolved", zap.Int("count", len(facilities)))

	mode, err := w.travelMode(ctx, req.TravelMode)
	if err != nil {
		return nil, err
	}

	polys, err := w.solveOnce(ctx, facilities, mode, req, req.TimeOfDay)
	if err != nil {
		return nil, err
	}
	log.Info("solve complete", zap.Int("polygons", len(polys)))

	return &Result{RunID: runID, Facilities: facilities, Polygons: polys}, nil
}

// Sweep runs the same solve once per time-of-day sample, strictly in order.
// The first failed sample aborts the sweep; no partial frame is emitted for
// it.
func (w *Workflow) Sweep(ctx context.Context, req Request, times []time.Time) (*SweepResult, error) {
	if len(times) == 0 {
		return nil, eris.New("workflow: sweep requires at least one time of day")
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))

	facilities, err := w.ResolveFacilities(ctx, req.Facilities)
	if err != nil {
		return nil, err
	}

	mode, err := w.travelMode(ctx, req.TravelMode)
	if err != nil {
		return nil, err
	}

	frames := make([]FrameResult, 0, len(times))
	for _, t := range times {
		sample := t
		polys, err := w.solveOnce(ctx, facilities, mode, req, &sample)
		if err != nil {
			return nil, eris.Wrapf(err, "workflow: sample %s", sample.Format(time.RFC3339))
		}
		frames = append(frames, FrameResult{
			TimeOfDay: sample,
			Label:     sample.Format("2006-01-02 15:04"),
			Polygons:  polys,
		})
		log.Info("sample solved",
			zap.Time("time_of_day", sample),
			zap.Int("polygons", len(polys)),
		)
	}

	return &SweepResult{RunID: runID, Facilities: facilities, Frames: frames}, nil
}

// ResolveFacilities geocodes each address, preserving input order. A miss on
// any address fails the whole resolution.
func (w *Workflow) ResolveFacilities(ctx context.Context, queries []string) ([]servicearea.Facility, error) {
	if len(queries) == 0 {
		return nil, eris.New("workflow: at least one facility address is required")
	}

	facilities := make([]servicearea.Facility, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.geocodeConcurrency)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			f, err := w.resolveOne(gctx, query)
			if err != nil {
				return err
			}
			facilities[i] = *f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return facilities, nil
}

func (w *Workflow) resolveOne(ctx context.Context, query string) (*servicearea.Facility, error) {
	cand, cached, err := w.cachedCandidate(ctx, query)
	if err != nil {
		return nil, err
	}

	if !cached {
		retry := w.retry
		retry.Operation = "geocode"
		cand, err = resilience.DoVal(ctx, retry, func(ctx context.Context) (*gis.Candidate, error) {
			return w.client.Geocode(ctx, query)
		})
		if errors.Is(err, gis.ErrNoMatch) {
			w.storeCandidate(ctx, query, nil)
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		w.storeCandidate(ctx, query, cand)
	}

	if cand == nil {
		return nil, eris.Wrapf(gis.ErrNoMatch, "workflow: geocode %q (cached)", query)
	}

	return &servicearea.Facility{
		Label:          query,
		MatchedAddress: cand.Address,
		X:              cand.Location.X,
		Y:              cand.Location.Y,
		Score:          cand.Score,
	}, nil
}

// cachedCandidate consults the geocode cache. cached=true with a nil
// candidate is a cached non-match.
func (w *Workflow) cachedCandidate(ctx context.Context, query string) (*gis.Candidate, bool, error) {
	if w.geocodeCache == nil {
		return nil, false, nil
	}
	cand, hit, err := w.geocodeCache.Lookup(ctx, query, w.cacheTTL)
	if err != nil {
		// A broken cache never blocks a solve.
		zap.L().Warn("geocode cache lookup failed", zap.String("query", query), zap.Error(err))
		return nil, false, nil
	}
	return cand, hit, nil
}

func (w *Workflow) storeCandidate(ctx context.Context, query string, cand *gis.Candidate) {
	if w.geocodeCache == nil {
		return
	}
	if err := w.geocodeCache.Store(ctx, query, cand); err != nil {
		zap.L().Warn("geocode cache store failed", zap.String("query", query), zap.Error(err))
	}
}

// travelMode resolves a mode name against the server catalog. Empty name
// means the server default.
func (w *Workflow) travelMode(ctx context.Context, name string) (*gis.TravelMode, error) {
	if name == "" {
		return nil, nil
	}

	retry := w.retry
	retry.Operation = "travel-modes"
	modes, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]gis.TravelMode, error) {
		return w.client.TravelModes(ctx)
	})
	if err != nil {
		return nil, err
	}
	return gis.FindTravelMode(modes, name)
}

// solveOnce submits one solve and converts the response, enforcing the
// one-polygon-per-facility-break invariant.
func (w *Workflow) solveOnce(ctx context.Context, facilities []servicearea.Facility, mode *gis.TravelMode, req Request, timeOfDay *time.Time) ([]servicearea.Polygon, error) {
	solveReq := gis.SolveRequest{
		Facilities:     servicearea.FacilitySet(facilities),
		Breaks:         req.Breaks,
		Direction:      req.Direction,
		Mode:           mode,
		TimeOfDay:      timeOfDay,
		TimeOfDayIsUTC: req.TimeOfDayIsUTC,
	}

	retry := w.retry
	retry.Operation = "solve-service-area"
	result, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*gis.SolveResult, error) {
		if w.breaker != nil {
			return resilience.ExecuteVal(ctx, w.breaker, func(ctx context.Context) (*gis.SolveResult, error) {
				return w.client.SolveServiceArea(ctx, solveReq)
			})
		}
		return w.client.SolveServiceArea(ctx, solveReq)
	})
	if err != nil {
		return nil, err
	}

	polys, err := servicearea.Convert(result.Polygons)
	if err != nil {
		return nil, err
	}
	if err := servicearea.ValidateCounts(polys, len(facilities), req.Breaks); err != nil {
		return nil, err
	}
	return polys, nil
}
