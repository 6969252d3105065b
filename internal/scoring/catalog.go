package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/risk"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
)

const DefaultSearchLimit = 20

// RecommendSimilarRisks lists the modules the student's nearest peers most often
// needed support in. Students outside the index get an empty list.
func (e *Engine) RecommendSimilarRisks(ctx context.Context, studentID string) ([]similarity.ModuleCount, error) {
	const op = "scoring.RecommendSimilarRisks"
	_, span := observability.StartSpan(ctx, op)
	defer span.End()

	s, err := e.current(op)
	if err != nil {
		return nil, err
	}
	out := s.Similarity.Recommend(studentID, e.opts.Similarity)
	if out == nil {
		out = []similarity.ModuleCount{}
	}
	return out, nil
}

func (e *Engine) SearchStudents(query string, limit int) ([]aggregates.StudentAggregate, error) {
	s, err := e.current("scoring.SearchStudents")
	if err != nil {
		return nil, err
	}
	out := s.Aggregates.SearchStudents(query, clampLimit(limit))
	if out == nil {
		out = []aggregates.StudentAggregate{}
	}
	return out, nil
}

func (e *Engine) SearchModules(query string, limit int) ([]aggregates.ModuleAggregate, error) {
	s, err := e.current("scoring.SearchModules")
	if err != nil {
		return nil, err
	}
	out := s.Aggregates.SearchModules(query, clampLimit(limit))
	if out == nil {
		out = []aggregates.ModuleAggregate{}
	}
	return out, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > 500:
		return 500
	}
	return limit
}

type ModuleDetail struct {
	aggregates.ModuleAggregate
	Pole      features.Pole               `json:"pole"`
	ByProgram []aggregates.ComboAggregate `json:"by_program"`
}

// Module returns the statistics of one module. Unlike scoring, an unknown name
// is an error here.
func (e *Engine) Module(name string) (ModuleDetail, error) {
	const op = "scoring.Module"
	s, err := e.current(op)
	if err != nil {
		return ModuleDetail{}, err
	}
	m, err := s.Aggregates.Module(name)
	if err != nil {
		return ModuleDetail{}, err
	}
	key := aggregates.ModuleKey(name)
	out := ModuleDetail{
		ModuleAggregate: m,
		Pole:            features.ClassifyModule(m.Module),
		ByProgram:       []aggregates.ComboAggregate{},
	}
	for k, c := range s.Aggregates.Combos {
		if k.Module == key {
			out.ByProgram = append(out.ByProgram, c)
		}
	}
	sort.Slice(out.ByProgram, func(i, j int) bool { return out.ByProgram[i].Key.Program < out.ByProgram[j].Key.Program })
	return out, nil
}

type ProgramSummary struct {
	Program     string  `json:"program"`
	Students    int     `json:"students"`
	Records     int     `json:"records"`
	MeanGrade   float64 `json:"mean_grade_20"`
	SupportRate float64 `json:"support_rate"`
}

type Overview struct {
	SnapshotID     string           `json:"snapshot_id"`
	Records        int              `json:"records"`
	Students       int              `json:"students"`
	Modules        int              `json:"modules"`
	Programs       int              `json:"programs"`
	MeanGrade      float64          `json:"mean_grade_20"`
	SupportRate    float64          `json:"support_rate"`
	ModelAvailable bool             `json:"model_available"`
	Profiles       map[string]int   `json:"profiles"`
	Tutoring       risk.TutorPlan   `json:"tutoring"`
	ByProgram      []ProgramSummary `json:"by_program"`
}

// Overview summarizes the dataset. Profiles come from the grade band so the
// overview does not depend on the model.
func (e *Engine) Overview() (Overview, error) {
	s, err := e.current("scoring.Overview")
	if err != nil {
		return Overview{}, err
	}
	set := s.Aggregates
	out := Overview{
		SnapshotID:     s.ID,
		Records:        len(s.Dataset.Records),
		Students:       len(set.Students),
		Modules:        len(set.Modules),
		Programs:       len(set.Programs),
		MeanGrade:      set.Global.MeanGrade,
		SupportRate:    set.Global.SupportRate,
		ModelAvailable: s.Model.Info().Available,
		Profiles:       map[string]int{},
	}
	students := map[string]int{}
	struggling := 0
	for _, st := range set.Students {
		p := risk.ProfileForGrade(st.MeanGrade)
		out.Profiles[string(p)]++
		students[st.Program]++
		if st.MeanGrade < grades.ValidationThreshold {
			struggling++
		}
	}
	out.Tutoring = risk.PlanTutoring(struggling)
	for _, name := range set.ProgramNames() {
		pg := set.Programs[name]
		out.ByProgram = append(out.ByProgram, ProgramSummary{
			Program:     name,
			Students:    students[name],
			Records:     pg.Count,
			MeanGrade:   pg.MeanGrade,
			SupportRate: pg.SupportRate,
		})
	}
	if out.ByProgram == nil {
		out.ByProgram = []ProgramSummary{}
	}
	return out, nil
}

// Strategy returns the pedagogical strategy for a profile name.
func (e *Engine) Strategy(profile string) (risk.Strategy, error) {
	p := risk.ParseProfile(profile)
	if p == risk.ProfileUnknown {
		return risk.Strategy{}, grades.NewError(grades.CodeInvalidInput, "scoring.Strategy", fmt.Sprintf("unknown profile %q", profile), nil)
	}
	return risk.StrategyFor(p), nil
}
