package features

import (
	"fmt"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// Origin tells where a column value came from.
type Origin string

const (
	OriginStudent       Origin = "student"
	OriginDerived       Origin = "derived"
	OriginPeerCohort    Origin = "peer_cohort"
	OriginPeerProgram   Origin = "peer_program"
	OriginPeerGlobal    Origin = "peer_global"
	OriginModule        Origin = "module"
	OriginCombo         Origin = "combo"
	OriginComboModule   Origin = "combo_from_module"
	OriginDefault       Origin = "default"
	OriginEncoder       Origin = "encoder"
	OriginUnencoded     Origin = "unencoded"
	OriginPole          Origin = "pole"
	OriginForceFallback Origin = "force_fallback"
	OriginZeroFill      Origin = "zero_fill"
)

// Features is the typed intermediate form of a feature vector. Field values are
// only serialized into artifact order by Vector.
type Features struct {
	StudentID    string `json:"student_id,omitempty"`
	Program      string `json:"program"`
	TargetModule string `json:"target_module,omitempty"`
	TargetPole   Pole   `json:"target_pole,omitempty"`

	Practical, Theoretical, Total, Grade20 float64
	Semester, Year                         float64

	PeerMeanTotal, PeerMeanGrade, PeerMeanPractical, PeerSupportRate float64
	DeviationTotal, DeviationGrade                                   float64

	StudentMeanTotal, StudentStdTotal, StudentMinTotal, StudentMaxTotal float64
	StudentModuleCount                                                  float64
	StudentMeanGrade, StudentMinGrade, StudentStdGrade                  float64
	StudentMeanPractical, StudentMeanTheoretical, StudentSupportRate    float64

	ModuleMeanTotal, ModuleMeanGrade, ModuleFailureRate, ModuleEnrollment float64
	ComboFailureRate, ComboHighRisk                                       float64

	SemesterLoad, AbsenteeRate, PracticalRatio, TheoryPracticeGap float64
	SupportCount, ThresholdDistance                               float64

	PoleStrength map[Pole]float64

	ProgramCode, PoleCode float64

	PeerScope    aggregates.PeerScope
	ModuleOrigin Origin
	ComboOrigin  Origin
	ProgramKnown bool
	PoleKnown    bool

	forceFallback float64
}

type field struct {
	column string
	value  func(*Features) float64
	origin func(*Features) Origin
}

func fixed(o Origin) func(*Features) Origin { return func(*Features) Origin { return o } }

func peerOrigin(f *Features) Origin {
	switch f.PeerScope {
	case aggregates.PeerScopeCohort:
		return OriginPeerCohort
	case aggregates.PeerScopeProgram:
		return OriginPeerProgram
	default:
		return OriginPeerGlobal
	}
}

func moduleOrigin(f *Features) Origin { return f.ModuleOrigin }
func comboOrigin(f *Features) Origin  { return f.ComboOrigin }

func programOrigin(f *Features) Origin {
	if f.ProgramKnown {
		return OriginEncoder
	}
	return OriginUnencoded
}

func poleOrigin(f *Features) Origin {
	if f.PoleKnown {
		return OriginEncoder
	}
	return OriginUnencoded
}

var fields = []field{
	{ColPractical, func(f *Features) float64 { return f.Practical }, fixed(OriginStudent)},
	{ColTheoretical, func(f *Features) float64 { return f.Theoretical }, fixed(OriginStudent)},
	{ColTotal, func(f *Features) float64 { return f.Total }, fixed(OriginStudent)},
	{ColGrade20, func(f *Features) float64 { return f.Grade20 }, fixed(OriginStudent)},
	{ColSemester, func(f *Features) float64 { return f.Semester }, fixed(OriginDefault)},
	{ColYear, func(f *Features) float64 { return f.Year }, fixed(OriginStudent)},
	{ColPeerMeanTotal, func(f *Features) float64 { return f.PeerMeanTotal }, peerOrigin},
	{ColPeerMeanGrade, func(f *Features) float64 { return f.PeerMeanGrade }, peerOrigin},
	{ColPeerMeanPractical, func(f *Features) float64 { return f.PeerMeanPractical }, peerOrigin},
	{ColPeerSupportRate, func(f *Features) float64 { return f.PeerSupportRate }, peerOrigin},
	{ColDeviationTotal, func(f *Features) float64 { return f.DeviationTotal }, fixed(OriginDerived)},
	{ColDeviationGrade, func(f *Features) float64 { return f.DeviationGrade }, fixed(OriginDerived)},
	{ColStudentMeanTotal, func(f *Features) float64 { return f.StudentMeanTotal }, fixed(OriginStudent)},
	{ColStudentStdTotal, func(f *Features) float64 { return f.StudentStdTotal }, fixed(OriginStudent)},
	{ColStudentMinTotal, func(f *Features) float64 { return f.StudentMinTotal }, fixed(OriginStudent)},
	{ColStudentMaxTotal, func(f *Features) float64 { return f.StudentMaxTotal }, fixed(OriginStudent)},
	{ColStudentModuleCount, func(f *Features) float64 { return f.StudentModuleCount }, fixed(OriginStudent)},
	{ColStudentMeanGrade, func(f *Features) float64 { return f.StudentMeanGrade }, fixed(OriginStudent)},
	{ColStudentMinGrade, func(f *Features) float64 { return f.StudentMinGrade }, fixed(OriginStudent)},
	{ColStudentMeanPract, func(f *Features) float64 { return f.StudentMeanPractical }, fixed(OriginStudent)},
	{ColStudentMeanTheory, func(f *Features) float64 { return f.StudentMeanTheoretical }, fixed(OriginStudent)},
	{ColStudentSupportRate, func(f *Features) float64 { return f.StudentSupportRate }, fixed(OriginStudent)},
	{ColModuleMeanTotal, func(f *Features) float64 { return f.ModuleMeanTotal }, moduleOrigin},
	{ColModuleMeanGrade, func(f *Features) float64 { return f.ModuleMeanGrade }, moduleOrigin},
	{ColModuleFailureRate, func(f *Features) float64 { return f.ModuleFailureRate }, moduleOrigin},
	{ColModuleEnrollment, func(f *Features) float64 { return f.ModuleEnrollment }, moduleOrigin},
	{ColComboFailureRate, func(f *Features) float64 { return f.ComboFailureRate }, comboOrigin},
	{ColComboHighRisk, func(f *Features) float64 { return f.ComboHighRisk }, comboOrigin},
	{ColSemesterLoad, func(f *Features) float64 { return f.SemesterLoad }, fixed(OriginDerived)},
	{ColAbsenteeRate, func(f *Features) float64 { return f.AbsenteeRate }, fixed(OriginDerived)},
	{ColPracticalRatio, func(f *Features) float64 { return f.PracticalRatio }, fixed(OriginDerived)},
	{ColTheoryPracticeGap, func(f *Features) float64 { return f.TheoryPracticeGap }, fixed(OriginDerived)},
	{ColSupportCount, func(f *Features) float64 { return f.SupportCount }, fixed(OriginDerived)},
	{ColThresholdDistance, func(f *Features) float64 { return f.ThresholdDistance }, fixed(OriginDerived)},
	{ColProgramEncoded, func(f *Features) float64 { return f.ProgramCode }, programOrigin},
	{ColPoleEncoded, func(f *Features) float64 { return f.PoleCode }, poleOrigin},
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(fields))
	for i, fd := range fields {
		m[fd.column] = i
	}
	return m
}()

// Lookup resolves a single column. Columns this builder does not know are zero.
// force_ columns fall back to the configured student-level value when the student
// has no record in that pole.
func (f *Features) Lookup(column string) (float64, Origin) {
	if i, ok := fieldIndex[column]; ok {
		return fields[i].value(f), fields[i].origin(f)
	}
	if pole, ok := PoleOfColumn(column); ok {
		if v, ok := f.PoleStrength[pole]; ok {
			return v, OriginPole
		}
		return f.forceFallback, OriginForceFallback
	}
	return 0, OriginZeroFill
}

// Vector serializes the features in the given column order. An empty column list
// uses DefaultColumns.
func (f *Features) Vector(columns []string) Vector {
	if len(columns) == 0 {
		columns = DefaultColumns()
	}
	v := Vector{
		Columns: append([]string(nil), columns...),
		Values:  make([]float64, len(columns)),
		Origins: make([]Origin, len(columns)),
	}
	for i, c := range columns {
		v.Values[i], v.Origins[i] = f.Lookup(c)
	}
	return v
}

// Vector is an ordered feature vector together with the column list that
// defines its order.
type Vector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
	Origins []Origin  `json:"origins,omitempty"`
}

func (v Vector) Width() int { return len(v.Values) }

// CheckWidth fails with a feature_shape error when the vector does not have
// exactly want values.
func (v Vector) CheckWidth(want int) error {
	if len(v.Values) == want && len(v.Columns) == want {
		return nil
	}
	return grades.NewError(grades.CodeFeatureShape, "features.CheckWidth",
		fmt.Sprintf("vector has %d values for %d columns, model expects %d", len(v.Values), len(v.Columns), want), nil)
}

// Map returns column -> value.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.Columns))
	for i, c := range v.Columns {
		if i < len(v.Values) {
			m[c] = v.Values[i]
		}
	}
	return m
}

// Defaulted lists columns whose value did not come from observed data.
func (v Vector) Defaulted() []string {
	var out []string
	for i, o := range v.Origins {
		switch o {
		case OriginDefault, OriginZeroFill, OriginForceFallback, OriginUnencoded:
			if v.Columns[i] != ColSemester {
				out = append(out, v.Columns[i])
			}
		}
	}
	return out
}

// Explanation is one diagnostic row of a vector.
type Explanation struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
	Source Origin  `json:"source"`
}

func (v Vector) Explain() []Explanation {
	out := make([]Explanation, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = Explanation{Column: c}
		if i < len(v.Values) {
			out[i].Value = v.Values[i]
		}
		if i < len(v.Origins) {
			out[i].Source = v.Origins[i]
		}
	}
	return out
}
