package config

import (
	"time"

	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
)

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	RequestTimeout    Duration `json:"request_timeout" yaml:"request_timeout"`
	CORSOrigins       []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

type DataConfig struct {
	Sources []ingest.Source `json:"sources" yaml:"sources"`

	// Watch reloads when a file source or the bundle changes on disk.
	Watch           bool     `json:"watch" yaml:"watch"`
	Debounce        Duration `json:"debounce" yaml:"debounce"`
	RefreshInterval Duration `json:"refresh_interval" yaml:"refresh_interval"`

	ComboHighRisk float64 `json:"combo_high_risk,omitempty" yaml:"combo_high_risk,omitempty"`
}

type ModelConfig struct {
	// BundlePath may be empty; scoring then runs on the heuristic.
	BundlePath string `json:"bundle_path" yaml:"bundle_path"`
}

type SimilarityConfig struct {
	Neighbours int `json:"neighbours" yaml:"neighbours"`
	Top        int `json:"top" yaml:"top"`
}

type ForecastConfig struct {
	Limit int `json:"limit" yaml:"limit"`
}

type CacheConfig struct {
	Mode       string   `json:"mode" yaml:"mode"`
	TTL        Duration `json:"ttl" yaml:"ttl"`
	MaxEntries int      `json:"max_entries" yaml:"max_entries"`
	RedisAddr  string   `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisDB    int      `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	// RedisPassword is only read from REDIS_PASSWORD.
	RedisPassword string `json:"-" yaml:"-"`
}

type Config struct {
	Env         string             `json:"env" yaml:"env"`
	ServiceName string             `json:"service_name" yaml:"service_name"`
	HTTP        HTTPConfig         `json:"http" yaml:"http"`
	Data        DataConfig         `json:"data" yaml:"data"`
	Model       ModelConfig        `json:"model" yaml:"model"`
	Features    features.Fallbacks `json:"features" yaml:"features"`
	Similarity  SimilarityConfig   `json:"similarity" yaml:"similarity"`
	Forecast    ForecastConfig     `json:"forecast" yaml:"forecast"`
	Cache       CacheConfig        `json:"cache" yaml:"cache"`
}
