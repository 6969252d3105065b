// Package scoring exposes the read operations of the risk engine over the
// currently published snapshot.
package scoring

import (
	"github.com/yungbote/neurobridge-risk/internal/cache"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

const DefaultForecastLimit = 25

type Options struct {
	Fallbacks     features.Fallbacks
	Similarity    similarity.Options
	ForecastLimit int
}

func DefaultOptions() Options {
	return Options{
		Fallbacks:     features.DefaultFallbacks(),
		Similarity:    similarity.DefaultOptions(),
		ForecastLimit: DefaultForecastLimit,
	}
}

type Engine struct {
	log     *logger.Logger
	store   *snapshot.Store
	cache   cache.Cache
	metrics *observability.Metrics
	opts    Options
}

type Option func(*Engine)

// WithCache enables prediction caching for Score.
func WithCache(c cache.Cache) Option { return func(e *Engine) { e.cache = c } }

func WithMetrics(m *observability.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func New(log *logger.Logger, store *snapshot.Store, opts Options, options ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	if opts.ForecastLimit <= 0 {
		opts.ForecastLimit = DefaultForecastLimit
	}
	if opts.Similarity.Neighbours <= 0 || opts.Similarity.Top <= 0 {
		def := similarity.DefaultOptions()
		if opts.Similarity.Neighbours <= 0 {
			opts.Similarity.Neighbours = def.Neighbours
		}
		if opts.Similarity.Top <= 0 {
			opts.Similarity.Top = def.Top
		}
	}
	e := &Engine{
		log:   log.With("service", "ScoringEngine"),
		store: store,
		cache: cache.Noop{},
		opts:  opts,
	}
	for _, o := range options {
		o(e)
	}
	if e.cache == nil {
		e.cache = cache.Noop{}
	}
	return e
}

// Ready reports whether a snapshot has been published.
func (e *Engine) Ready() bool { return e.store.Current() != nil }

// current returns the published snapshot after checking that every derived
// structure belongs to the same dataset.
func (e *Engine) current(op string) (*snapshot.Snapshot, error) {
	s := e.store.Current()
	if s == nil {
		return nil, grades.NewError(grades.CodeDataLoad, op, "no snapshot loaded", nil)
	}
	if !s.Consistent() {
		return nil, grades.NewError(grades.CodeStaleAggregates, op, "aggregates do not match the loaded dataset", nil)
	}
	return s, nil
}

func (e *Engine) assembler(s *snapshot.Snapshot) *features.Assembler {
	programs, poles := s.Model.Encoders()
	return features.NewAssembler(s.Aggregates,
		features.WithFallbacks(e.opts.Fallbacks),
		features.WithEncoders(programs, poles),
		features.WithThreshold(s.Model.Info().Threshold),
	)
}

// SnapshotInfo describes the published snapshot.
func (e *Engine) SnapshotInfo() (snapshot.Info, error) {
	s, err := e.current("scoring.SnapshotInfo")
	if err != nil {
		return snapshot.Info{}, err
	}
	return s.Info(), nil
}
