package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
	"github.com/yungbote/neurobridge-risk/internal/model"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
)

type Config struct {
	Sources    []ingest.Source
	BundlePath string
	Aggregates aggregates.Options
}

// Loader builds snapshots off to the side and publishes them to a Store.
type Loader struct {
	log        *logger.Logger
	ingest     *ingest.Loader
	bundlePath string
	aggOpts    aggregates.Options
	store      *Store
	metrics    *observability.Metrics

	seq   atomic.Uint64
	group singleflight.Group

	mu        sync.Mutex
	onPublish []func(*Snapshot)
}

func NewLoader(log *logger.Logger, cfg Config, store *Store, metrics *observability.Metrics) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		log:        log.With("service", "SnapshotLoader"),
		ingest:     ingest.NewLoader(log, cfg.Sources...),
		bundlePath: cfg.BundlePath,
		aggOpts:    cfg.Aggregates,
		store:      store,
		metrics:    metrics,
	}
}

func (l *Loader) Store() *Store { return l.store }

// OnPublish registers fn to run after every successful swap.
func (l *Loader) OnPublish(fn func(*Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onPublish = append(l.onPublish, fn)
}

// WatchPaths lists the local files a snapshot depends on.
func (l *Loader) WatchPaths() []string {
	var out []string
	for _, s := range l.ingest.Sources() {
		if s.Watchable() {
			out = append(out, s.Path)
		}
	}
	if l.bundlePath != "" {
		out = append(out, l.bundlePath)
	}
	return out
}

// Reload builds a new snapshot and publishes it. Concurrent calls share one build.
// On failure the previous snapshot stays published. The shared build keeps the
// caller's values but not its cancellation, so one caller going away does not
// fail the others.
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	buildCtx := context.WithoutCancel(ctx)
	v, err, shared := l.group.Do("reload", func() (any, error) {
		return l.reload(buildCtx)
	})
	if shared {
		l.log.Debug("reload request joined an in-flight build")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (l *Loader) reload(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	s, err := l.Build(ctx)
	if err != nil {
		l.metrics.ObserveReload("error", time.Since(start))
		prev := l.store.Current()
		fields := []interface{}{"error", err, "duration_ms", time.Since(start).Milliseconds()}
		if prev != nil {
			fields = append(fields, "kept_snapshot", prev.ID, "kept_seq", prev.Seq)
		}
		l.log.Error("snapshot load failed", fields...)
		return nil, err
	}
	old := l.store.Swap(s)
	l.metrics.ObserveReload("ok", time.Since(start))
	l.metrics.SetSnapshot(s.Seq, len(s.Dataset.Records), s.Dataset.Report.Dropped, s.ModelErr == nil)

	fields := []interface{}{
		"snapshot_id", s.ID,
		"seq", s.Seq,
		"dataset_id", s.Dataset.ID,
		"records", len(s.Dataset.Records),
		"students", len(s.Aggregates.Students),
		"model_available", s.ModelErr == nil,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if old != nil {
		fields = append(fields, "replaced_seq", old.Seq)
	}
	l.log.Info("snapshot published", fields...)

	l.mu.Lock()
	hooks := append([]func(*Snapshot){}, l.onPublish...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(s)
	}
	return s, nil
}

// Build loads every source, then computes aggregates, the similarity index and
// the model in parallel. A bundle failure does not fail the build: the snapshot
// carries model.Unavailable and the cause is logged once here.
func (l *Loader) Build(ctx context.Context) (*Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, "snapshot.Build")
	defer span.End()

	ds, err := l.ingest.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest failed")
		return nil, err
	}

	var (
		set      *aggregates.Set
		idx      *similarity.Index
		pred     model.Predictor
		modelErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set = aggregates.Build(ds.ID, ds.Records, l.aggOpts)
		return gctx.Err()
	})
	g.Go(func() error {
		idx = similarity.Build(ds.ID, ds.Records)
		return gctx.Err()
	})
	g.Go(func() error {
		pred, modelErr = l.loadModel()
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, grades.Wrap(grades.CodeDataLoad, "snapshot.Build", err)
	}

	s := newSnapshot(uuid.NewString(), l.seq.Add(1), ds, set, idx, pred, modelErr)
	if modelErr != nil {
		l.log.Warn("model unavailable, scoring falls back to heuristic",
			"snapshot_id", s.ID,
			"bundle", l.bundlePath,
			"error", modelErr,
		)
	}
	span.SetAttributes(
		attribute.String("snapshot.id", s.ID),
		attribute.Int("snapshot.records", len(ds.Records)),
		attribute.Bool("snapshot.model_available", modelErr == nil),
	)
	return s, nil
}

func (l *Loader) loadModel() (model.Predictor, error) {
	if l.bundlePath == "" {
		err := grades.NewError(grades.CodeModelUnavailable, "snapshot.loadModel", "no bundle configured", nil)
		return model.NewUnavailable(err), err
	}
	m, err := model.Load(l.bundlePath)
	if err != nil {
		return model.NewUnavailable(err), err
	}
	return m, nil
}
