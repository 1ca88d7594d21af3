package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/drivetime-cli/internal/cache"
	"github.com/sells-group/drivetime-cli/internal/config"
	"github.com/sells-group/drivetime-cli/internal/resilience"
	"github.com/sells-group/drivetime-cli/internal/workflow"
	"github.com/sells-group/drivetime-cli/pkg/gis"
)

// env bundles the client, workflow, and their resources for one command run.
type env struct {
	Client   *gis.Client
	Workflow *workflow.Workflow

	geocodeCache *cache.GeocodeCache
}

func (e *env) Close() {
	if e.geocodeCache != nil {
		if err := e.geocodeCache.Close(); err != nil {
			zap.L().Warn("close geocode cache", zap.Error(err))
		}
	}
}

// initWorkflow wires the platform client and workflow from config. The solve
// config mode must already be validated.
func initWorkflow() (*env, error) {
	if err := cfg.Validate("solve"); err != nil {
		return nil, err
	}

	opts := []gis.Option{
		gis.WithRateLimit(cfg.GIS.RateLimitRPS),
		gis.WithReferer(cfg.GIS.Referer),
	}
	if cfg.GIS.GeocodeURL != "" {
		opts = append(opts, gis.WithGeocodeURL(cfg.GIS.GeocodeURL))
	}
	if cfg.GIS.RoutingUtilURL != "" {
		opts = append(opts, gis.WithRoutingUtilURL(cfg.GIS.RoutingUtilURL))
	}
	if cfg.GIS.ServiceAreaURL != "" {
		opts = append(opts, gis.WithServiceAreaURL(cfg.GIS.ServiceAreaURL))
	}
	client := gis.NewClient(cfg.GIS.PortalURL, cfg.GIS.Username, cfg.GIS.Password, opts...)

	wfOpts := []workflow.Option{
		workflow.WithRetry(retryFromConfig(cfg.GIS.Retry)),
		workflow.WithGeocodeConcurrency(cfg.Solve.GeocodeConcurrency),
	}

	e := &env{Client: client}

	if cfg.Cache.Enabled {
		gc, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			// A broken cache degrades to uncached geocoding.
			zap.L().Warn("open geocode cache", zap.String("path", cfg.Cache.Path), zap.Error(err))
		} else {
			e.geocodeCache = gc
			ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
			wfOpts = append(wfOpts, workflow.WithGeocodeCache(gc, ttl))
		}
	}

	if cfg.GIS.Breaker.Enabled {
		cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.GIS.Breaker.FailureThreshold,
			ResetTimeout:     time.Duration(cfg.GIS.Breaker.ResetTimeoutSecs) * time.Second,
		})
		wfOpts = append(wfOpts, workflow.WithCircuitBreaker(cb))
	}

	e.Workflow = workflow.New(client, wfOpts...)
	return e, nil
}

func retryFromConfig(rc config.RetryConfig) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    rc.MaxAttempts,
		InitialBackoff: time.Duration(rc.InitialBackoffSecs * float64(time.Second)),
		MaxBackoff:     time.Duration(rc.MaxBackoffSecs * float64(time.Second)),
		Multiplier:     rc.Multiplier,
	}
}
