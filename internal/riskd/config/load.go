package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/cache"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
	"github.com/yungbote/neurobridge-risk/internal/platform/envutil"
	"github.com/yungbote/neurobridge-risk/internal/scoring"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.Duration.String()) }

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env:         "development",
		ServiceName: "riskd",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			RequestTimeout:    Duration{Duration: 30 * time.Second},
		},
		Data: DataConfig{
			Debounce:      Duration{Duration: 2 * time.Second},
			ComboHighRisk: aggregates.DefaultComboHighRisk,
		},
		Features: features.DefaultFallbacks(),
		Similarity: SimilarityConfig{
			Neighbours: similarity.DefaultNeighbours,
			Top:        similarity.DefaultTop,
		},
		Forecast: ForecastConfig{Limit: scoring.DefaultForecastLimit},
		Cache: CacheConfig{
			Mode:       cache.KindMemory,
			TTL:        Duration{Duration: cache.DefaultTTL},
			MaxEntries: cache.DefaultMaxEntries,
		},
	}
}

// Override adjusts a loaded config before validation.
type Override func(*Config)

// Load reads .env (if present), then the config file, then environment
// overrides, then the given overrides. path wins over RISK_CONFIG_PATH; with
// neither, ./config/config.json or ./config/config.yaml is used when it exists.
func Load(path string, overrides ...Override) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(path)
	if cfgPath == "" {
		cfgPath = envutil.String("RISK_CONFIG_PATH", "")
	}
	if cfgPath == "" {
		cfgPath = findDefaultFile()
	}
	if cfgPath != "" {
		if err := decodeFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	for _, o := range overrides {
		if o != nil {
			o(cfg)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findDefaultFile() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// decodeFile overlays the file onto cfg so unset fields keep their defaults.
func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.HTTP.Addr = envutil.String("RISK_HTTP_ADDR", cfg.HTTP.Addr)
	if origins := envutil.List("RISK_CORS_ORIGINS"); len(origins) > 0 {
		cfg.HTTP.CORSOrigins = origins
	}
	if paths := envutil.List("RISK_DATA_PATHS"); len(paths) > 0 {
		cfg.Data.Sources = cfg.Data.Sources[:0]
		for _, p := range paths {
			cfg.Data.Sources = append(cfg.Data.Sources, ingest.FileSource(p))
		}
	}
	cfg.Data.Watch = envutil.Bool("RISK_WATCH", cfg.Data.Watch)
	cfg.Model.BundlePath = envutil.String("RISK_BUNDLE_PATH", cfg.Model.BundlePath)
	cfg.Cache.Mode = envutil.String("RISK_CACHE_MODE", cfg.Cache.Mode)
	cfg.Cache.RedisAddr = envutil.String("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.Cache.RedisPassword)
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if len(c.Data.Sources) == 0 {
		return errors.New("config must define at least one data source (data.sources or RISK_DATA_PATHS)")
	}
	for i := range c.Data.Sources {
		c.Data.Sources[i] = c.Data.Sources[i].Normalize()
		if err := c.Data.Sources[i].Validate(); err != nil {
			return fmt.Errorf("data source %d: %w", i, err)
		}
	}
	if c.Data.Debounce.Duration <= 0 {
		c.Data.Debounce.Duration = 2 * time.Second
	}
	if c.Data.RefreshInterval.Duration < 0 {
		return errors.New("data.refresh_interval must not be negative")
	}
	if c.Data.ComboHighRisk <= 0 || c.Data.ComboHighRisk >= 1 {
		c.Data.ComboHighRisk = aggregates.DefaultComboHighRisk
	}
	c.Model.BundlePath = strings.TrimSpace(c.Model.BundlePath)
	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if c.Similarity.Neighbours <= 0 {
		c.Similarity.Neighbours = similarity.DefaultNeighbours
	}
	if c.Similarity.Top <= 0 {
		c.Similarity.Top = similarity.DefaultTop
	}
	if c.Forecast.Limit <= 0 {
		c.Forecast.Limit = scoring.DefaultForecastLimit
	}

	c.Cache.Mode = strings.ToLower(strings.TrimSpace(c.Cache.Mode))
	switch c.Cache.Mode {
	case "":
		c.Cache.Mode = cache.KindMemory
	case cache.KindMemory, cache.KindNone:
	case cache.KindRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return errors.New("cache.mode=redis requires cache.redis_addr or REDIS_ADDR")
		}
	default:
		return fmt.Errorf("invalid cache.mode=%q", c.Cache.Mode)
	}
	if c.Cache.TTL.Duration <= 0 {
		c.Cache.TTL.Duration = cache.DefaultTTL
	}
	return nil
}

func (c *Config) SnapshotConfig() snapshot.Config {
	return snapshot.Config{
		Sources:    append([]ingest.Source(nil), c.Data.Sources...),
		BundlePath: c.Model.BundlePath,
		Aggregates: aggregates.Options{ComboHighRisk: c.Data.ComboHighRisk},
	}
}

func (c *Config) ScoringOptions() scoring.Options {
	return scoring.Options{
		Fallbacks:     c.Features,
		Similarity:    similarity.Options{Neighbours: c.Similarity.Neighbours, Top: c.Similarity.Top},
		ForecastLimit: c.Forecast.Limit,
	}
}

func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Kind:          c.Cache.Mode,
		TTL:           c.Cache.TTL.Duration,
		MaxEntries:    c.Cache.MaxEntries,
		RedisAddr:     c.Cache.RedisAddr,
		RedisDB:       c.Cache.RedisDB,
		RedisPassword: c.Cache.RedisPassword,
	}
}
