package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	GIS    GISConfig    `yaml:"gis" mapstructure:"gis"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Solve  SolveConfig  `yaml:"solve" mapstructure:"solve"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// GISConfig holds platform credentials, service endpoints, and the client's
// resilience settings.
type GISConfig struct {
	PortalURL      string  `yaml:"portal_url" mapstructure:"portal_url"`
	Username       string  `yaml:"username" mapstructure:"username"`
	Password       string  `yaml:"password" mapstructure:"password"`
	Referer        string  `yaml:"referer" mapstructure:"referer"`
	GeocodeURL     string  `yaml:"geocode_url" mapstructure:"geocode_url"`
	RoutingUtilURL string  `yaml:"routing_util_url" mapstructure:"routing_util_url"`
	ServiceAreaURL string  `yaml:"service_area_url" mapstructure:"service_area_url"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`

	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig configures retry of transient platform failures.
type RetryConfig struct {
	MaxAttempts        int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs float64 `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	MaxBackoffSecs     float64 `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
	Multiplier         float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// BreakerConfig configures the circuit breaker around the solver.
type BreakerConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int  `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CacheConfig configures the local geocode cache.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// SolveConfig holds defaults for solve parameters the flags don't set.
type SolveConfig struct {
	Breaks             []float64 `yaml:"breaks" mapstructure:"breaks"`
	Direction          string    `yaml:"direction" mapstructure:"direction"`
	TravelMode         string    `yaml:"travel_mode" mapstructure:"travel_mode"`
	GeocodeConcurrency int       `yaml:"geocode_concurrency" mapstructure:"geocode_concurrency"`
}

// RenderConfig configures map output.
type RenderConfig struct {
	// Colors maps break minutes to "r,g,b,a" values. Empty uses the
	// built-in 5/10/15 table.
	Colors          map[string]string `yaml:"colors" mapstructure:"colors"`
	FrameIntervalMS int               `yaml:"frame_interval_ms" mapstructure:"frame_interval_ms"`
	Title           string            `yaml:"title" mapstructure:"title"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port        int    `yaml:"port" mapstructure:"port"`
	ArtifactDir string `yaml:"artifact_dir" mapstructure:"artifact_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DRIVETIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("gis.portal_url", "https://www.arcgis.com")
	v.SetDefault("gis.referer", "drivetime-cli")
	v.SetDefault("gis.rate_limit_rps", 10.0)
	v.SetDefault("gis.retry.max_attempts", 4)
	v.SetDefault("gis.retry.initial_backoff_secs", 1.0)
	v.SetDefault("gis.retry.max_backoff_secs", 30.0)
	v.SetDefault("gis.retry.multiplier", 2.0)
	v.SetDefault("gis.breaker.enabled", true)
	v.SetDefault("gis.breaker.failure_threshold", 5)
	v.SetDefault("gis.breaker.reset_timeout_secs", 60)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "geocode-cache.db")
	v.SetDefault("cache.ttl_hours", 720)
	v.SetDefault("solve.breaks", []float64{5, 10, 15})
	v.SetDefault("solve.direction", "from-facility")
	v.SetDefault("solve.geocode_concurrency", 4)
	v.SetDefault("render.frame_interval_ms", 1500)
	v.SetDefault("render.title", "Drive-time service areas")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.artifact_dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "solve"
// for solve/geocode/modes/animate, "serve" for the artifact server.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "solve":
		check(c.GIS.PortalURL != "", "gis.portal_url is required")
		check(len(c.Solve.Breaks) > 0, "solve.breaks must name at least one break")
		for _, b := range c.Solve.Breaks {
			check(b > 0, "solve.breaks values must be > 0")
		}
		check(c.Solve.GeocodeConcurrency >= 1 && c.Solve.GeocodeConcurrency <= 32,
			"solve.geocode_concurrency must be between 1 and 32")
		check(c.GIS.Retry.MaxAttempts >= 1, "gis.retry.max_attempts must be >= 1")
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Server.ArtifactDir != "", "server.artifact_dir is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
