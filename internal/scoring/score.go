package scoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/neurobridge-risk/internal/cache"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/risk"
	"github.com/yungbote/neurobridge-risk/internal/snapshot"
)

const (
	pathModel     = "model"
	pathHeuristic = "heuristic"
)

// Score predicts the risk of a known student failing targetModule. An empty
// target scores the student's general risk with default module statistics.
func (e *Engine) Score(ctx context.Context, studentID, targetModule string) (risk.Prediction, error) {
	const op = "scoring.Score"
	ctx, span := observability.StartSpan(ctx, op, attribute.Bool("target.set", targetModule != ""))
	defer span.End()

	s, err := e.current(op)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return risk.Prediction{}, err
	}
	records := s.Records(studentID)
	if len(records) == 0 {
		return risk.Prediction{}, unknownStudent(op, studentID)
	}

	key := cache.Key(s.ID, studentID, targetModule)
	if p, ok := e.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return p, nil
	}

	p, err := e.score(ctx, s, records, targetModule)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return risk.Prediction{}, err
	}
	span.SetAttributes(
		attribute.Bool("risk.using_model", p.UsingModel()),
		attribute.String("risk.category", string(p.Category)),
	)
	if err := cache.SetPrediction(ctx, e.cache, key, p); err != nil {
		e.log.Warn("prediction cache write failed", "error", err)
	}
	return p, nil
}

// ScoreRecords scores an arbitrary record set as if it were one student's whole
// history. Records are re-derived so grade_20 and needs_support are consistent
// with their raw fields. Results are never cached.
func (e *Engine) ScoreRecords(ctx context.Context, records []grades.Record, targetModule string) (risk.Prediction, error) {
	const op = "scoring.ScoreRecords"
	ctx, span := observability.StartSpan(ctx, op, attribute.Int("records", len(records)))
	defer span.End()

	if len(records) == 0 {
		return risk.Prediction{}, grades.NewError(grades.CodeInvalidInput, op, "at least one record is required", nil)
	}
	s, err := e.current(op)
	if err != nil {
		return risk.Prediction{}, err
	}
	derived := make([]grades.Record, len(records))
	for i, r := range records {
		if r.Module == "" {
			return risk.Prediction{}, grades.NewError(grades.CodeInvalidInput, op, fmt.Sprintf("record %d has no module", i), nil)
		}
		derived[i] = r.Derive()
	}
	p, err := e.score(ctx, s, derived, targetModule)
	if err != nil {
		span.RecordError(err)
		return risk.Prediction{}, err
	}
	return p, nil
}

// score runs the learned path and falls back to the heuristic for any model
// failure except a shape mismatch, which is a corrupt artifact and propagates.
func (e *Engine) score(ctx context.Context, s *snapshot.Snapshot, records []grades.Record, target string) (risk.Prediction, error) {
	start := time.Now()
	f, err := e.assembler(s).Assemble(records, target)
	if err != nil {
		return risk.Prediction{}, err
	}
	est, err := e.estimate(ctx, s, f)
	if err != nil {
		return risk.Prediction{}, err
	}

	p := risk.NewPrediction(f.StudentID, f.TargetModule, est, f.StudentMeanGrade)
	p.SnapshotID = s.ID
	if p.UsingModel() {
		p.BundleVersion = s.Model.Info().Version
	}
	path := pathHeuristic
	if p.UsingModel() {
		path = pathModel
	}
	e.metrics.ObserveScore(path, string(p.Category), time.Since(start))
	return p, nil
}

func (e *Engine) estimate(ctx context.Context, s *snapshot.Snapshot, f *features.Features) (risk.Estimate, error) {
	vec := f.Vector(s.Model.Columns())
	out, err := s.Model.Predict(ctx, vec)
	switch {
	case err == nil:
		return risk.LearnedEstimate{
			Probability:    out.Probability,
			PredictedLabel: out.Label,
			Profile:        out.Profile,
			Cluster:        out.Cluster,
			BundleVersion:  s.Model.Info().Version,
		}, nil
	case grades.IsCode(err, grades.CodeFeatureShape):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	// Unavailability was already logged when the snapshot loaded.
	if !grades.IsCode(err, grades.CodeModelUnavailable) {
		e.log.Warn("model prediction failed, using heuristic", "snapshot_id", s.ID, "error", err)
	}
	// Without module history the features carry the configured fallback rate.
	h := risk.Heuristic(risk.HeuristicInputs{
		MeanGrade:  f.StudentMeanGrade,
		StdGrade:   f.StudentStdGrade,
		ModuleRate: f.ModuleFailureRate,
		HasModule:  true,
	})
	h.Cause = string(grades.CodeOf(err))
	return h, nil
}

func (e *Engine) cached(ctx context.Context, key string) (risk.Prediction, bool) {
	p, ok, err := cache.GetPrediction(ctx, e.cache, key)
	switch {
	case err != nil:
		e.metrics.IncCache("error")
		e.log.Warn("prediction cache read failed", "error", err)
		return risk.Prediction{}, false
	case ok:
		e.metrics.IncCache("hit")
		return p, true
	default:
		e.metrics.IncCache("miss")
		return risk.Prediction{}, false
	}
}

func unknownStudent(op, id string) error {
	return grades.NewError(grades.CodeUnknownStudent, op, fmt.Sprintf("student %q has no records", id), nil)
}
