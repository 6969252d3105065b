package aggregates

import "strings"

// StudentAggregate summarizes one student's records.
type StudentAggregate struct {
	StudentID string `json:"student_id"`
	Program   string `json:"program"`
	Year      int    `json:"year"`
	Count     int    `json:"module_count"`

	MeanTotal float64 `json:"mean_total"`
	StdTotal  float64 `json:"std_total"`
	MinTotal  float64 `json:"min_total"`
	MaxTotal  float64 `json:"max_total"`

	MeanGrade float64 `json:"mean_grade_20"`
	StdGrade  float64 `json:"std_grade_20"`
	MinGrade  float64 `json:"min_grade_20"`
	MaxGrade  float64 `json:"max_grade_20"`

	MeanPractical   float64 `json:"mean_practical"`
	MeanTheoretical float64 `json:"mean_theoretical"`

	SupportCount int     `json:"support_count"`
	SupportRate  float64 `json:"support_rate"`
	AbsenteeRate float64 `json:"absentee_rate"`
}

// Difficulty buckets a module by historical failure rate.
type Difficulty string

const (
	DifficultyVeryHard   Difficulty = "Très_Difficile"
	DifficultyHard       Difficulty = "Difficile"
	DifficultyMedium     Difficulty = "Moyen"
	DifficultyAccessible Difficulty = "Accessible"
)

func ClassifyDifficulty(failureRate float64) Difficulty {
	switch {
	case failureRate >= 0.5:
		return DifficultyVeryHard
	case failureRate >= 0.3:
		return DifficultyHard
	case failureRate >= 0.15:
		return DifficultyMedium
	default:
		return DifficultyAccessible
	}
}

type ModuleAggregate struct {
	Module      string     `json:"module"`
	Enrollment  int        `json:"enrollment"`
	MeanTotal   float64    `json:"mean_total"`
	MeanGrade   float64    `json:"mean_grade_20"`
	FailureRate float64    `json:"failure_rate"`
	Difficulty  Difficulty `json:"difficulty"`
}

type PeerKey struct {
	Program string `json:"program"`
	Year    int    `json:"year"`
}

// PeerGroupAggregate is a cohort summary. The same shape is used for program-wide
// rollups (Year 0) and the global dataset means (empty key).
type PeerGroupAggregate struct {
	Key             PeerKey `json:"key"`
	Count           int     `json:"count"`
	MeanTotal       float64 `json:"mean_total"`
	MeanGrade       float64 `json:"mean_grade_20"`
	MeanPractical   float64 `json:"mean_practical"`
	MeanTheoretical float64 `json:"mean_theoretical"`
	SupportRate     float64 `json:"support_rate"`
}

// PeerScope records which level of the peer lookup answered.
type PeerScope string

const (
	PeerScopeCohort  PeerScope = "cohort"
	PeerScopeProgram PeerScope = "program"
	PeerScopeGlobal  PeerScope = "global"
)

type ComboKey struct {
	Program string `json:"program"`
	Module  string `json:"module"`
}

type ComboAggregate struct {
	Key         ComboKey `json:"key"`
	Count       int      `json:"count"`
	FailureRate float64  `json:"failure_rate"`
	HighRisk    bool     `json:"high_risk"`
}

// ModuleKey normalizes a module name for lookups: case-folded, trimmed, inner
// whitespace collapsed.
func ModuleKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
