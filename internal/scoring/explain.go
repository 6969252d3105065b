package scoring

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/observability"
)

// FeatureReport is the assembled vector for a (student, target) pair with the
// provenance of every column.
type FeatureReport struct {
	StudentID    string                 `json:"student_id"`
	Program      string                 `json:"program"`
	TargetModule string                 `json:"target_module,omitempty"`
	TargetPole   features.Pole          `json:"target_pole,omitempty"`
	SnapshotID   string                 `json:"snapshot_id"`
	PeerScope    aggregates.PeerScope   `json:"peer_scope"`
	ModuleSource features.Origin        `json:"module_source"`
	ComboSource  features.Origin        `json:"combo_source"`
	Vector       features.Vector        `json:"vector"`
	Explanation  []features.Explanation `json:"explanation"`
	Defaulted    []string               `json:"defaulted"`
}

// AssembleFeatures returns the exact vector Score would feed the model. A vector
// whose width differs from the model's is a feature_shape error.
func (e *Engine) AssembleFeatures(ctx context.Context, studentID, targetModule string) (FeatureReport, error) {
	const op = "scoring.AssembleFeatures"
	_, span := observability.StartSpan(ctx, op, attribute.Bool("target.set", targetModule != ""))
	defer span.End()

	s, err := e.current(op)
	if err != nil {
		return FeatureReport{}, err
	}
	records := s.Records(studentID)
	if len(records) == 0 {
		return FeatureReport{}, unknownStudent(op, studentID)
	}
	f, err := e.assembler(s).Assemble(records, targetModule)
	if err != nil {
		return FeatureReport{}, err
	}
	vec := f.Vector(s.Model.Columns())
	if err := vec.CheckWidth(s.Model.Info().Columns); err != nil {
		span.RecordError(err)
		return FeatureReport{}, err
	}
	defaulted := vec.Defaulted()
	if defaulted == nil {
		defaulted = []string{}
	}
	return FeatureReport{
		StudentID:    f.StudentID,
		Program:      f.Program,
		TargetModule: f.TargetModule,
		TargetPole:   f.TargetPole,
		SnapshotID:   s.ID,
		PeerScope:    f.PeerScope,
		ModuleSource: f.ModuleOrigin,
		ComboSource:  f.ComboOrigin,
		Vector:       vec,
		Explanation:  vec.Explain(),
		Defaulted:    defaulted,
	}, nil
}
