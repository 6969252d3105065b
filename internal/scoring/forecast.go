package scoring

import (
	"context"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/risk"
)

// Success bands used to group forecast entries.
const (
	forecastHighRisk    = 0.4
	forecastRecommended = 0.6
)

type ForecastEntry struct {
	Module             string                `json:"module"`
	FailureProbability float64               `json:"failure_probability"`
	SuccessProbability float64               `json:"success_probability"`
	Category           risk.Category         `json:"category"`
	UsingModel         bool                  `json:"using_model"`
	EstimatedGrade     float64               `json:"estimated_grade"`
	Mention            risk.Mention          `json:"mention"`
	Difficulty         aggregates.Difficulty `json:"difficulty"`
	ModuleFailureRate  float64               `json:"module_failure_rate"`
	ModuleMeanGrade    float64               `json:"module_mean_grade_20"`
	Enrollment         int                   `json:"enrollment"`
}

type ForecastSummary struct {
	HighRisk    int `json:"high_risk"`
	Moderate    int `json:"moderate"`
	Recommended int `json:"recommended"`
}

type Forecast struct {
	StudentID   string          `json:"student_id"`
	Program     string          `json:"program"`
	Year        int             `json:"year"`
	MeanGrade   float64         `json:"mean_grade_20"`
	ModulesDone int             `json:"modules_done"`
	Entries     []ForecastEntry `json:"entries"`
	Summary     ForecastSummary `json:"summary"`
	SnapshotID  string          `json:"snapshot_id"`
}

// ForecastModules scores every module of the student's program the student has
// not taken yet, riskiest first.
func (e *Engine) ForecastModules(ctx context.Context, studentID string) (Forecast, error) {
	const op = "scoring.ForecastModules"
	ctx, span := observability.StartSpan(ctx, op)
	defer span.End()

	s, err := e.current(op)
	if err != nil {
		return Forecast{}, err
	}
	records := s.Records(studentID)
	if len(records) == 0 {
		return Forecast{}, unknownStudent(op, studentID)
	}
	student := aggregates.Summarize(records)

	taken := mapset.NewThreadUnsafeSet[string]()
	for _, r := range records {
		taken.Add(aggregates.ModuleKey(r.Module))
	}
	var candidates []string
	for _, m := range s.Aggregates.ProgramModules(student.Program) {
		if taken.Contains(aggregates.ModuleKey(m)) {
			continue
		}
		candidates = append(candidates, m)
		if len(candidates) == e.opts.ForecastLimit {
			break
		}
	}
	span.SetAttributes(attribute.Int("forecast.candidates", len(candidates)))

	out := Forecast{
		StudentID:   studentID,
		Program:     student.Program,
		Year:        student.Year,
		MeanGrade:   student.MeanGrade,
		ModulesDone: taken.Cardinality(),
		Entries:     make([]ForecastEntry, 0, len(candidates)),
		SnapshotID:  s.ID,
	}
	for _, module := range candidates {
		if err := ctx.Err(); err != nil {
			return Forecast{}, err
		}
		p, err := e.score(ctx, s, records, module)
		if err != nil {
			return Forecast{}, err
		}
		m, _ := s.Aggregates.Module(module)
		grade := risk.EstimatedGrade(student.MeanGrade, m.FailureRate)
		out.Entries = append(out.Entries, ForecastEntry{
			Module:             m.Module,
			FailureProbability: p.Probability,
			SuccessProbability: 1 - p.Probability,
			Category:           p.Category,
			UsingModel:         p.UsingModel(),
			EstimatedGrade:     grade,
			Mention:            risk.MentionFor(grade),
			Difficulty:         m.Difficulty,
			ModuleFailureRate:  m.FailureRate,
			ModuleMeanGrade:    m.MeanGrade,
			Enrollment:         m.Enrollment,
		})
	}
	sort.SliceStable(out.Entries, func(i, j int) bool {
		a, b := out.Entries[i], out.Entries[j]
		if a.SuccessProbability != b.SuccessProbability {
			return a.SuccessProbability < b.SuccessProbability
		}
		return a.Module < b.Module
	})
	for _, en := range out.Entries {
		switch {
		case en.SuccessProbability < forecastHighRisk:
			out.Summary.HighRisk++
		case en.SuccessProbability < forecastRecommended:
			out.Summary.Moderate++
		default:
			out.Summary.Recommended++
		}
	}
	return out, nil
}
