package scoring

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/cache"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
	"github.com/yungbote/neurobridge-risk/internal/model"
	"github.com/yungbote/neurobridge-risk/internal/model/modeltest"
	"github.com/yungbote/neurobridge-risk/internal/risk"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

func rec(id, program, module string, total float64, status grades.Status) grades.Record {
	return grades.Record{
		StudentID:   id,
		Program:     program,
		Module:      module,
		Practical:   total * 0.3,
		Theoretical: total * 0.7,
		Total:       total,
		Status:      status,
	}.Derive()
}

// a1 is excellent, b1 fails everything, c1 sits on the threshold, e1 and e2 are
// identical.
func testRecords() []grades.Record {
	return []grades.Record{
		rec("a1", "EEA", "ModuleX", 90, grades.StatusPass),
		rec("a1", "EEA", "ModuleY", 85, grades.StatusPass),
		rec("b1", "EEA", "Hard 1", 30, grades.StatusFail),
		rec("b1", "EEA", "Hard 2", 28, grades.StatusFail),
		rec("b1", "EEA", "Hard 3", 32, grades.StatusFail),
		rec("b1", "EEA", "Hard 4", 30, grades.StatusFail),
		rec("c1", "EEA", "ModuleX", 50, grades.StatusPass),
		rec("c1", "EEA", "ModuleY", 50, grades.StatusPass),
		rec("e1", "GC", "Analyse 1", 60, grades.StatusPass),
		rec("e1", "GC", "Physique 1", 70, grades.StatusPass),
		rec("e2", "GC", "Analyse 1", 60, grades.StatusPass),
		rec("e2", "GC", "Physique 1", 70, grades.StatusPass),
	}
}

func publish(t *testing.T, m model.Predictor) *snapshot.Store {
	t.Helper()
	ds := &ingest.Dataset{ID: "ds-1", LoadedAt: time.Now(), Records: testRecords()}
	store := snapshot.NewStore()
	store.Swap(snapshot.FromDataset(ds, aggregates.DefaultOptions(), m, nil))
	return store
}

func learnedEngine(t *testing.T, options ...Option) *Engine {
	return New(nil, publish(t, modeltest.Model(t)), DefaultOptions(), options...)
}

func heuristicEngine(t *testing.T) *Engine {
	return New(nil, publish(t, nil), DefaultOptions())
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func TestScoreExcellentStudent(t *testing.T) {
	p, err := learnedEngine(t).Score(context.Background(), "a1", "")
	require.NoError(t, err)
	require.True(t, p.UsingModel())
	require.InDelta(t, sigmoid(-9), p.Probability, 1e-12)
	require.Equal(t, risk.ProfileExcellence, p.Profile)
	require.Equal(t, risk.CategoryMinimal, p.Category)
	require.Equal(t, modeltest.Version, p.BundleVersion)
	require.Equal(t, "ds-1", p.SnapshotID)
}

func TestScoreFailingStudent(t *testing.T) {
	ctx := context.Background()
	for _, r := range testRecords() {
		if r.StudentID == "b1" {
			require.True(t, r.NeedsSupport)
		}
	}

	p, err := learnedEngine(t).Score(ctx, "b1", "")
	require.NoError(t, err)
	require.Equal(t, risk.CategoryCritical, p.Category)

	// Grade band 0.85 and a module everyone failed.
	h, err := heuristicEngine(t).Score(ctx, "b1", "Hard 1")
	require.NoError(t, err)
	require.False(t, h.UsingModel())
	require.InDelta(t, 0.775, h.Probability, 1e-9)
	require.GreaterOrEqual(t, h.Probability, 0.7)
	require.Equal(t, risk.ProfileAtRisk, h.Profile)
}

func TestScoreNeverTakenModule(t *testing.T) {
	ctx := context.Background()
	e := learnedEngine(t)

	report, err := e.AssembleFeatures(ctx, "c1", "NeverTakenModule")
	require.NoError(t, err)
	vals := report.Vector.Map()
	require.Equal(t, 0.5, vals[features.ColModuleFailureRate])
	require.Equal(t, 10.0, vals[features.ColModuleMeanGrade])
	require.Equal(t, features.OriginDefault, report.ModuleSource)
	require.Contains(t, report.Defaulted, features.ColModuleFailureRate)

	a, err := e.Score(ctx, "a1", "")
	require.NoError(t, err)
	b, err := e.Score(ctx, "b1", "")
	require.NoError(t, err)
	c, err := e.Score(ctx, "c1", "NeverTakenModule")
	require.NoError(t, err)
	require.InDelta(t, 0.5, c.Probability, 1e-12)
	require.Greater(t, c.Probability, a.Probability)
	require.Less(t, c.Probability, b.Probability)
	require.Equal(t, "NeverTakenModule", c.TargetModule)
}

func TestScoreUnknownStudent(t *testing.T) {
	e := learnedEngine(t)
	p, err := e.Score(context.Background(), "nobody", "ModuleX")
	require.Error(t, err)
	require.True(t, grades.IsCode(err, grades.CodeUnknownStudent))
	require.Equal(t, risk.Prediction{}, p)

	_, err = e.AssembleFeatures(context.Background(), "nobody", "")
	require.True(t, grades.IsCode(err, grades.CodeUnknownStudent))
	_, err = e.ForecastModules(context.Background(), "nobody")
	require.True(t, grades.IsCode(err, grades.CodeUnknownStudent))
}

func TestScoreIdenticalHistories(t *testing.T) {
	for _, e := range []*Engine{learnedEngine(t), heuristicEngine(t)} {
		p1, err := e.Score(context.Background(), "e1", "Analyse 1")
		require.NoError(t, err)
		p2, err := e.Score(context.Background(), "e2", "Analyse 1")
		require.NoError(t, err)
		require.Equal(t, p1.Probability, p2.Probability)
		require.Equal(t, p1.Category, p2.Category)
		require.Equal(t, p1.Profile, p2.Profile)
		p2.StudentID = p1.StudentID
		require.Equal(t, p1, p2)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	e := learnedEngine(t)
	first, err := e.Score(context.Background(), "c1", "ModuleX")
	require.NoError(t, err)
	second, err := e.Score(context.Background(), "c1", "ModuleX")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScoreCachesPerSnapshot(t *testing.T) {
	mem := cache.NewMemory(time.Minute, 100)
	e := learnedEngine(t, WithCache(mem))
	ctx := context.Background()

	first, err := e.Score(ctx, "a1", "ModuleX")
	require.NoError(t, err)
	require.Equal(t, 1, mem.Len())
	cached, err := e.Score(ctx, "a1", "moduleX ")
	require.NoError(t, err)
	require.Equal(t, first, cached)
	require.Equal(t, 1, mem.Len())

	ds := &ingest.Dataset{ID: "ds-2", Records: testRecords()}
	e.store.Swap(snapshot.FromDataset(ds, aggregates.DefaultOptions(), modeltest.Model(t), nil))
	fresh, err := e.Score(ctx, "a1", "ModuleX")
	require.NoError(t, err)
	require.Equal(t, "ds-2", fresh.SnapshotID)
	require.Equal(t, 2, mem.Len())
}

func TestFallbackWhenModelUnavailable(t *testing.T) {
	e := heuristicEngine(t)
	for _, id := range []string{"a1", "b1", "c1", "e1", "e2"} {
		for _, target := range []string{"", "ModuleX", "Hard 2", "NeverTakenModule"} {
			p, err := e.Score(context.Background(), id, target)
			require.NoError(t, err)
			require.False(t, p.UsingModel())
			require.GreaterOrEqual(t, p.Probability, 0.01)
			require.LessOrEqual(t, p.Probability, 0.99)
			est, ok := p.Estimate.(risk.HeuristicEstimate)
			require.True(t, ok)
			require.Equal(t, string(grades.CodeModelUnavailable), est.Cause)
			require.Empty(t, p.BundleVersion)
		}
	}
}

func TestHeuristicUsesConfiguredModuleFallback(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.Fallbacks.ModuleFailureRate = 0.1
	e := New(nil, publish(t, nil), opts)

	report, err := e.AssembleFeatures(ctx, "c1", "NeverTakenModule")
	require.NoError(t, err)
	require.Equal(t, 0.1, report.Vector.Map()[features.ColModuleFailureRate])

	for _, target := range []string{"NeverTakenModule", ""} {
		p, err := e.Score(ctx, "c1", target)
		require.NoError(t, err)
		est, ok := p.Estimate.(risk.HeuristicEstimate)
		require.True(t, ok)
		require.Equal(t, 0.1, est.ModuleRate, target)
	}

	// Known modules keep their observed rate.
	p, err := e.Score(ctx, "b1", "Hard 2")
	require.NoError(t, err)
	require.Equal(t, 1.0, p.Estimate.(risk.HeuristicEstimate).ModuleRate)
}

type failingPredictor struct {
	model.Predictor
	err error
}

func (f failingPredictor) Predict(context.Context, features.Vector) (model.Output, error) {
	return model.Output{}, f.err
}

func TestPredictionErrors(t *testing.T) {
	shape := failingPredictor{Predictor: modeltest.Model(t), err: grades.NewError(grades.CodeFeatureShape, "test", "bad width", nil)}
	_, err := New(nil, publish(t, shape), DefaultOptions()).Score(context.Background(), "a1", "")
	require.True(t, grades.IsCode(err, grades.CodeFeatureShape))

	broken := failingPredictor{Predictor: modeltest.Model(t), err: grades.NewError(grades.CodeInternal, "test", "boom", nil)}
	p, err := New(nil, publish(t, broken), DefaultOptions()).Score(context.Background(), "a1", "")
	require.NoError(t, err)
	require.False(t, p.UsingModel())
	require.Equal(t, "internal", p.Estimate.(risk.HeuristicEstimate).Cause)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := learnedEngine(t).Score(ctx, "a1", "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestFinalColumnOrderMatters(t *testing.T) {
	ctx := context.Background()
	e := learnedEngine(t)
	m := modeltest.Model(t)

	report, err := e.AssembleFeatures(ctx, "a1", "Hard 1")
	require.NoError(t, err)
	out, err := m.Predict(ctx, report.Vector)
	require.NoError(t, err)
	p, err := e.Score(ctx, "a1", "Hard 1")
	require.NoError(t, err)
	require.Equal(t, out.Probability, p.Probability)

	permuted := report.Vector
	permuted.Values = append([]float64(nil), report.Vector.Values...)
	cols := features.DefaultColumns()
	var gi, ri int
	for i, c := range cols {
		switch c {
		case features.ColStudentMeanGrade:
			gi = i
		case features.ColModuleFailureRate:
			ri = i
		}
	}
	permuted.Values[gi], permuted.Values[ri] = permuted.Values[ri], permuted.Values[gi]
	swapped, err := m.Predict(ctx, permuted)
	require.NoError(t, err)
	require.NotEqual(t, out.Probability, swapped.Probability)
}

func TestScoreRecordsIgnoresRecordOrder(t *testing.T) {
	ctx := context.Background()
	e := learnedEngine(t)
	want, err := e.Score(ctx, "a1", "Hard 1")
	require.NoError(t, err)

	var recs []grades.Record
	for _, r := range testRecords() {
		if r.StudentID == "a1" {
			// Derived fields are recomputed from Total and Status.
			r.Grade20, r.NeedsSupport = 0, true
			recs = append([]grades.Record{r}, recs...)
		}
	}
	got, err := e.ScoreRecords(ctx, recs, "Hard 1")
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = e.ScoreRecords(ctx, nil, "")
	require.True(t, grades.IsCode(err, grades.CodeInvalidInput))
	_, err = e.ScoreRecords(ctx, []grades.Record{{StudentID: "x", Total: 50}}, "")
	require.True(t, grades.IsCode(err, grades.CodeInvalidInput))
}

func TestStaleAndMissingSnapshot(t *testing.T) {
	e := New(nil, snapshot.NewStore(), DefaultOptions())
	require.False(t, e.Ready())
	_, err := e.Score(context.Background(), "a1", "")
	require.True(t, grades.IsCode(err, grades.CodeDataLoad))

	store := publish(t, modeltest.Model(t))
	s := store.Current()
	stale := *s.Aggregates
	stale.DatasetID = "older"
	s.Aggregates = &stale
	e = New(nil, store, DefaultOptions())
	require.True(t, e.Ready())
	_, err = e.Score(context.Background(), "a1", "")
	require.True(t, grades.IsCode(err, grades.CodeStaleAggregates))
	_, err = e.Overview()
	require.True(t, grades.IsCode(err, grades.CodeStaleAggregates))
}
