// Package cache stores encoded predictions keyed by snapshot, student and target
// module. Entries are only an optimization: a miss or a backend error means the
// caller recomputes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
	"github.com/yungbote/neurobridge-risk/internal/risk"
)

const (
	KindNone   = "none"
	KindMemory = "memory"
	KindRedis  = "redis"

	DefaultTTL        = 10 * time.Minute
	DefaultMaxEntries = 50_000
	keyPrefix         = "risk:v1:"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	// Clear drops every entry this cache owns.
	Clear(ctx context.Context) error
	Close() error
}

type Config struct {
	Kind       string        `json:"kind" yaml:"kind"`
	TTL        time.Duration `json:"-" yaml:"-"`
	MaxEntries int           `json:"max_entries" yaml:"max_entries"`
	RedisAddr  string        `json:"redis_addr" yaml:"redis_addr"`
	RedisDB    int           `json:"redis_db" yaml:"redis_db"`
	// RedisPassword is never logged.
	RedisPassword string `json:"-" yaml:"-"`
}

// New builds the configured backend. An empty kind means memory.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindMemory:
		return NewMemory(cfg.TTL, cfg.MaxEntries), nil
	case KindRedis:
		return NewRedis(ctx, log, cfg)
	case KindNone, "off", "disabled":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q", cfg.Kind)
	}
}

// Key scopes an entry to one snapshot so a reload never serves stale results.
func Key(snapshotID, studentID, module string) string {
	return keyPrefix + snapshotID + ":" + studentID + ":" + aggregates.ModuleKey(module)
}

// GetPrediction decodes a cached prediction. Undecodable entries count as misses.
func GetPrediction(ctx context.Context, c Cache, key string) (risk.Prediction, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return risk.Prediction{}, false, err
	}
	var p risk.Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return risk.Prediction{}, false, nil
	}
	return p, true, nil
}

func SetPrediction(ctx context.Context, c Cache, key string, p risk.Prediction) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte) error         { return nil }
func (Noop) Clear(context.Context) error                       { return nil }
func (Noop) Close() error                                      { return nil }
