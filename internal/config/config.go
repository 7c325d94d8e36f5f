package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Images     ImagesConfig     `yaml:"images" mapstructure:"images"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// BoundariesConfig selects the county boundary dataset loaded at startup.
type BoundariesConfig struct {
	Format      string `yaml:"format" mapstructure:"format"`
	Path        string `yaml:"path" mapstructure:"path"`
	Layer       string `yaml:"layer" mapstructure:"layer"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Year        int    `yaml:"year" mapstructure:"year"`
}

// IndexConfig tunes the grid index. CellDegrees > 0 disables the automatic
// cell size search.
type IndexConfig struct {
	CellDegrees      float64 `yaml:"cell_degrees" mapstructure:"cell_degrees"`
	TargetCandidates int     `yaml:"target_candidates" mapstructure:"target_candidates"`
	MinCellDegrees   float64 `yaml:"min_cell_degrees" mapstructure:"min_cell_degrees"`
}

// CacheConfig configures the in-memory resolve cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	MaxEntries int  `yaml:"max_entries" mapstructure:"max_entries"`
	TTLSecs    int  `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MaxBodyMB          int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
}

// ImagesConfig configures the thumbnail conversion endpoint.
type ImagesConfig struct {
	MaxFiles     int     `yaml:"max_files" mapstructure:"max_files"`
	MaxDimension int     `yaml:"max_dimension" mapstructure:"max_dimension"`
	JPEGQuality  int     `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	Workers      int     `yaml:"workers" mapstructure:"workers"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst        int     `yaml:"burst" mapstructure:"burst"`
	MaxUploadMB  int     `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COUNTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("boundaries.format", "auto")
	v.SetDefault("boundaries.path", "./data/us_counties/us_counties.shp")
	v.SetDefault("boundaries.layer", "")
	v.SetDefault("boundaries.database_url", "")
	v.SetDefault("boundaries.table", "geo.counties")
	v.SetDefault("boundaries.temp_dir", "/tmp/county-api")
	v.SetDefault("boundaries.year", 2024)
	v.SetDefault("index.cell_degrees", 0.0)
	v.SetDefault("index.target_candidates", 16)
	v.SetDefault("index.min_cell_degrees", 0.05)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.ttl_secs", 3600)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"https://www.gravl.org",
		"https://api.gravl.org",
	})
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("server.max_body_mb", 1)
	v.SetDefault("images.max_files", 10)
	v.SetDefault("images.max_dimension", 400)
	v.SetDefault("images.jpeg_quality", 85)
	v.SetDefault("images.workers", 4)
	v.SetDefault("images.rate_per_sec", 5.0)
	v.SetDefault("images.burst", 10)
	v.SetDefault("images.max_upload_mb", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// minCellDegrees is the smallest grid cell accepted from configuration.
const minCellDegrees = 0.001

// Validate checks the settings a given command depends on. Mode is one of
// "serve", "lookup" or "download".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "lookup":
		errs = append(errs, c.validateBoundaries()...)
		if c.Index.TargetCandidates < 1 {
			errs = append(errs, "index.target_candidates must be >= 1")
		}
		if c.Index.CellDegrees != 0 && !(c.Index.CellDegrees >= minCellDegrees) {
			errs = append(errs, fmt.Sprintf("index.cell_degrees must be 0 (automatic) or >= %g", minCellDegrees))
		}
		if c.Index.MinCellDegrees != 0 && !(c.Index.MinCellDegrees >= minCellDegrees) {
			errs = append(errs, fmt.Sprintf("index.min_cell_degrees must be 0 (default) or >= %g", minCellDegrees))
		}
		if mode == "serve" {
			if c.Server.Port <= 0 {
				errs = append(errs, "server.port must be > 0")
			}
			if c.Images.MaxFiles < 1 {
				errs = append(errs, "images.max_files must be >= 1")
			}
			if c.Images.MaxDimension < 1 {
				errs = append(errs, "images.max_dimension must be >= 1")
			}
			if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
				errs = append(errs, "images.jpeg_quality must be between 1 and 100")
			}
		}
	case "download":
		if c.Boundaries.Year < 2000 {
			errs = append(errs, "boundaries.year must be >= 2000")
		}
		if c.Boundaries.TempDir == "" {
			errs = append(errs, "boundaries.temp_dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateBoundaries() []string {
	switch strings.ToLower(c.Boundaries.Format) {
	case "postgis":
		if c.Boundaries.DatabaseURL == "" {
			return []string{"boundaries.database_url is required for postgis"}
		}
		if c.Boundaries.Table == "" {
			return []string{"boundaries.table is required for postgis"}
		}
	case "auto", "shapefile", "geojson", "geopackage":
		if c.Boundaries.Path == "" {
			return []string{"boundaries.path is required"}
		}
	default:
		return []string{"boundaries.format must be one of auto, shapefile, geojson, geopackage, postgis"}
	}
	return nil
}

// RedactURL masks the password of a connection URL. Strings that do not
// parse as URLs are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
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
