package features

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

type mapEncoder map[string]int

func (m mapEncoder) Encode(label string) (int, bool) {
	v, ok := m[label]
	return v, ok
}

func rec(id, program, module string, total float64, status grades.Status) grades.Record {
	return grades.Record{
		StudentID:   id,
		Program:     program,
		Module:      module,
		Year:        1,
		Practical:   total * 0.3,
		Theoretical: total * 0.7,
		Total:       total,
		Status:      status,
	}.Derive()
}

func dataset() []grades.Record {
	return []grades.Record{
		rec("a", "EEA", "Analyse 1", 80, grades.StatusPass),
		rec("a", "EEA", "Programmation C", 60, grades.StatusPass),
		rec("b", "EEA", "Analyse 1", 30, grades.StatusFail),
		rec("b", "EEA", "Thermodynamique", 45, grades.StatusFail),
		rec("c", "GC", "Thermodynamique", 70, grades.StatusPass),
		rec("c", "GC", "Analyse 1", 20, grades.StatusAbsent),
	}
}

func studentRecords(all []grades.Record, id string) []grades.Record {
	var out []grades.Record
	for _, r := range all {
		if r.StudentID == id {
			out = append(out, r)
		}
	}
	return out
}

func newAssembler(opts ...Option) *Assembler {
	return NewAssembler(aggregates.Build("ds", dataset(), aggregates.DefaultOptions()), opts...)
}

func TestAssembleStudentColumns(t *testing.T) {
	a := newAssembler()
	f, err := a.Assemble(studentRecords(dataset(), "a"), "")
	require.NoError(t, err)

	require.Equal(t, "EEA", f.Program)
	require.Equal(t, 70.0, f.Total)
	require.Equal(t, 14.0, f.Grade20)
	require.Equal(t, 14.0, f.StudentMeanGrade)
	require.Equal(t, 12.0, f.StudentMinGrade)
	require.Equal(t, 2.0, f.StudentModuleCount)
	require.Equal(t, 1.0, f.Semester)
	require.Equal(t, 1.0, f.Year)
	require.Equal(t, 4.0, f.ThresholdDistance)
	require.InDelta(t, 21.0/71.0, f.PracticalRatio, 1e-12)
	require.InDelta(t, 28.0, f.TheoryPracticeGap, 1e-9)

	require.Equal(t, aggregates.PeerScopeCohort, f.PeerScope)
	require.Equal(t, 53.75, f.PeerMeanTotal)
	require.Equal(t, 70.0-53.75, f.DeviationTotal)
	require.Equal(t, 0.5, f.PeerSupportRate)
}

func TestAssembleUnknownStudent(t *testing.T) {
	_, err := newAssembler().Assemble(nil, "Analyse 1")
	require.True(t, errors.Is(err, grades.ErrUnknownStudent))
}

func TestAssembleUnseenModuleUsesDefaults(t *testing.T) {
	f, err := newAssembler().Assemble(studentRecords(dataset(), "a"), "NeverTakenModule")
	require.NoError(t, err)
	require.Equal(t, 0.5, f.ModuleFailureRate)
	require.Equal(t, 10.0, f.ModuleMeanGrade)
	require.Equal(t, 50.0, f.ModuleMeanTotal)
	require.Equal(t, 100.0, f.ModuleEnrollment)
	require.Equal(t, 0.5, f.ComboFailureRate)
	require.Equal(t, 0.0, f.ComboHighRisk)
	require.Equal(t, OriginDefault, f.ModuleOrigin)
	require.Equal(t, OriginDefault, f.ComboOrigin)
}

func TestAssembleConfigurableFallbacks(t *testing.T) {
	fb := DefaultFallbacks()
	fb.ModuleFailureRate = 0.25
	fb.ModuleMeanGrade = 12
	f, err := newAssembler(WithFallbacks(fb)).Assemble(studentRecords(dataset(), "a"), "NeverTakenModule")
	require.NoError(t, err)
	require.Equal(t, 0.25, f.ModuleFailureRate)
	require.Equal(t, 12.0, f.ModuleMeanGrade)
}

func TestAssembleKnownModuleAndCombo(t *testing.T) {
	recs := studentRecords(dataset(), "a")

	f, err := newAssembler().Assemble(recs, "analyse 1")
	require.NoError(t, err)
	require.Equal(t, "Analyse 1", f.TargetModule)
	require.Equal(t, OriginModule, f.ModuleOrigin)
	require.InDelta(t, 2.0/3.0, f.ModuleFailureRate, 1e-12)
	require.Equal(t, 3.0, f.ModuleEnrollment)
	require.Equal(t, OriginCombo, f.ComboOrigin)
	require.Equal(t, 0.5, f.ComboFailureRate)
	require.Equal(t, 1.0, f.ComboHighRisk)

	// Programmation C was only taken in EEA, so a GC student gets the module rate.
	f, err = newAssembler().Assemble(studentRecords(dataset(), "c"), "Programmation C")
	require.NoError(t, err)
	require.Equal(t, OriginComboModule, f.ComboOrigin)
	require.Equal(t, 0.0, f.ComboFailureRate)
	require.Equal(t, 0.0, f.ComboHighRisk)
}

func TestVectorFollowsColumnOrderAndFills(t *testing.T) {
	f, err := newAssembler().Assemble(studentRecords(dataset(), "a"), "")
	require.NoError(t, err)

	cols := []string{ColGrade20, "force_Physique", "force_Mathematiques", "mystery_column", ColTotal}
	v := f.Vector(cols)
	require.Equal(t, cols, v.Columns)
	require.Equal(t, []float64{14, 14, 16, 0, 70}, v.Values)
	require.Equal(t, []Origin{OriginStudent, OriginForceFallback, OriginPole, OriginZeroFill, OriginStudent}, v.Origins)
	require.Equal(t, []string{"force_Physique", "mystery_column"}, v.Defaulted())
}

func TestVectorForceZeroFallback(t *testing.T) {
	fb := DefaultFallbacks()
	fb.ForceZero = true
	f, err := newAssembler(WithFallbacks(fb)).Assemble(studentRecords(dataset(), "a"), "")
	require.NoError(t, err)
	v, origin := f.Lookup("force_Physique")
	require.Equal(t, 0.0, v)
	require.Equal(t, OriginForceFallback, origin)
}

func TestVectorDefaultColumns(t *testing.T) {
	f, err := newAssembler().Assemble(studentRecords(dataset(), "a"), "")
	require.NoError(t, err)
	v := f.Vector(nil)
	require.Equal(t, DefaultColumns(), v.Columns)
	require.Equal(t, len(baseColumns)+len(AllPoles())+2, v.Width())
	require.Equal(t, ColPractical, v.Columns[0])
	require.Equal(t, ColPoleEncoded, v.Columns[len(v.Columns)-1])
	require.NoError(t, v.CheckWidth(v.Width()))
	require.True(t, errors.Is(v.CheckWidth(v.Width()+1), grades.ErrFeatureShape))
}

func TestEncoders(t *testing.T) {
	a := newAssembler(WithEncoders(mapEncoder{"EEA": 3}, mapEncoder{"Mathematiques": 5}))
	f, err := a.Assemble(studentRecords(dataset(), "a"), "Analyse 2")
	require.NoError(t, err)
	require.Equal(t, 3.0, f.ProgramCode)
	require.Equal(t, PoleMathematics, f.TargetPole)
	require.Equal(t, 5.0, f.PoleCode)

	f, err = a.Assemble(studentRecords(dataset(), "c"), "")
	require.NoError(t, err)
	require.Equal(t, 0.0, f.ProgramCode)
	require.False(t, f.ProgramKnown)
	require.Equal(t, 0.0, f.PoleCode)
}

func TestAssembleStepOrderDoesNotMatter(t *testing.T) {
	a := newAssembler(WithEncoders(mapEncoder{"EEA": 1, "GC": 2}, mapEncoder{"Physique": 4}))
	recs := studentRecords(dataset(), "b")
	want, err := a.Assemble(recs, "Thermodynamique")
	require.NoError(t, err)
	wantVec := want.Vector(nil)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		steps := append([]step(nil), buildSteps...)
		rng.Shuffle(len(steps), func(i, j int) { steps[i], steps[j] = steps[j], steps[i] })
		got, err := a.assemble(recs, "Thermodynamique", steps)
		require.NoError(t, err)
		require.Equal(t, wantVec, got.Vector(nil))
	}
}

func TestAssembleRecordOrderDoesNotMatter(t *testing.T) {
	a := newAssembler()
	recs := studentRecords(dataset(), "a")
	f1, err := a.Assemble(recs, "Analyse 1")
	require.NoError(t, err)
	f2, err := a.Assemble([]grades.Record{recs[1], recs[0]}, "Analyse 1")
	require.NoError(t, err)
	require.Equal(t, f1.Vector(nil), f2.Vector(nil))
}

func TestClassifyModule(t *testing.T) {
	require.Equal(t, PoleMathematics, ClassifyModule("Analyse Numérique"))
	require.Equal(t, PolePhysics, ClassifyModule("Mécanique du point"))
	require.Equal(t, PoleMechanics, ClassifyModule("RDM 2"))
	require.Equal(t, PoleComputing, ClassifyModule("Programmation C"))
	require.Equal(t, PoleLanguages, ClassifyModule("English for engineers"))
	require.Equal(t, PoleMathematics, ClassifyModule("رياضيات 1"))
	require.Equal(t, PoleOther, ClassifyModule("Stage"))
}

func TestFallbacksValidate(t *testing.T) {
	require.NoError(t, DefaultFallbacks().Validate())
	fb := DefaultFallbacks()
	fb.ModuleFailureRate = 1.5
	require.Error(t, fb.Validate())
}
