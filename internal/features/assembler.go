package features

import (
	"errors"
	"fmt"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// Fallbacks are the values used when a target module or combo has no history.
// The midpoint defaults avoid biasing the model towards either class.
type Fallbacks struct {
	ModuleFailureRate   float64 `json:"module_failure_rate" yaml:"module_failure_rate"`
	ModuleMeanGrade     float64 `json:"module_mean_grade" yaml:"module_mean_grade"`
	ModuleMeanTotal     float64 `json:"module_mean_total" yaml:"module_mean_total"`
	ModuleEnrollment    float64 `json:"module_enrollment" yaml:"module_enrollment"`
	ComboFailureRate    float64 `json:"combo_failure_rate" yaml:"combo_failure_rate"`
	UnseenComboHighRisk float64 `json:"unseen_combo_high_risk" yaml:"unseen_combo_high_risk"`
	// ForceZero fills absent force_ columns with 0 instead of the student's mean grade.
	ForceZero bool `json:"force_zero" yaml:"force_zero"`
}

func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		ModuleFailureRate:   0.5,
		ModuleMeanGrade:     10,
		ModuleMeanTotal:     50,
		ModuleEnrollment:    100,
		ComboFailureRate:    0.5,
		UnseenComboHighRisk: 0.5,
	}
}

func (fb Fallbacks) Validate() error {
	for name, v := range map[string]float64{
		"module_failure_rate":    fb.ModuleFailureRate,
		"combo_failure_rate":     fb.ComboFailureRate,
		"unseen_combo_high_risk": fb.UnseenComboHighRisk,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("fallback %s=%v must be within [0,1]", name, v)
		}
	}
	if fb.ModuleMeanGrade < 0 || fb.ModuleMeanGrade > 20 {
		return fmt.Errorf("fallback module_mean_grade=%v must be within [0,20]", fb.ModuleMeanGrade)
	}
	if fb.ModuleMeanTotal < 0 || fb.ModuleMeanTotal > 100 {
		return fmt.Errorf("fallback module_mean_total=%v must be within [0,100]", fb.ModuleMeanTotal)
	}
	if fb.ModuleEnrollment < 0 {
		return fmt.Errorf("fallback module_enrollment=%v must be positive", fb.ModuleEnrollment)
	}
	return nil
}

// Encoder maps a categorical label to the integer code the model was trained on.
type Encoder interface {
	Encode(label string) (int, bool)
}

type Assembler struct {
	set       *aggregates.Set
	fallbacks Fallbacks
	programs  Encoder
	poles     Encoder
	threshold float64
}

type Option func(*Assembler)

func WithFallbacks(fb Fallbacks) Option { return func(a *Assembler) { a.fallbacks = fb } }

// WithEncoders sets the program and pole encoders. Either may be nil.
func WithEncoders(programs, poles Encoder) Option {
	return func(a *Assembler) { a.programs, a.poles = programs, poles }
}

// WithThreshold overrides the validation threshold used for distance_seuil.
func WithThreshold(t float64) Option {
	return func(a *Assembler) {
		if t > 0 {
			a.threshold = t
		}
	}
}

func NewAssembler(set *aggregates.Set, opts ...Option) *Assembler {
	a := &Assembler{
		set:       set,
		fallbacks: DefaultFallbacks(),
		threshold: grades.ValidationThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// inputs is everything the build steps read. Steps never read each other's output,
// so they can run in any order.
type inputs struct {
	student   aggregates.StudentAggregate
	peer      aggregates.PeerGroupAggregate
	peerScope aggregates.PeerScope

	target       string
	targetPole   Pole
	module       aggregates.ModuleAggregate
	moduleOrigin Origin
	comboRate    float64
	comboHigh    bool
	comboOrigin  Origin

	poles map[Pole]float64

	programCode  int
	programKnown bool
	poleCode     int
	poleKnown    bool

	threshold     float64
	forceFallback float64
}

type step func(*Features, *inputs)

var buildSteps = []step{
	observedStep,
	peerStep,
	studentStep,
	moduleStep,
	comboStep,
	derivedStep,
	poleStep,
	encodeStep,
}

// Assemble builds the features for one student's records and an optional target
// module. The records are summarized directly, so filtered or hypothetical subsets
// are scored as given.
func (a *Assembler) Assemble(records []grades.Record, target string) (*Features, error) {
	return a.assemble(records, target, buildSteps)
}

func (a *Assembler) assemble(records []grades.Record, target string, steps []step) (*Features, error) {
	if len(records) == 0 {
		return nil, grades.NewError(grades.CodeUnknownStudent, "features.Assemble", "no records for student", nil)
	}
	in, err := a.gather(records, target)
	if err != nil {
		return nil, err
	}
	f := &Features{
		StudentID:     in.student.StudentID,
		Program:       in.student.Program,
		TargetModule:  in.target,
		TargetPole:    in.targetPole,
		forceFallback: in.forceFallback,
	}
	for _, s := range steps {
		s(f, in)
	}
	return f, nil
}

func (a *Assembler) gather(records []grades.Record, target string) (*inputs, error) {
	in := &inputs{
		student:   aggregates.Summarize(records),
		threshold: a.threshold,
	}
	in.peer, in.peerScope = a.set.Peer(in.student.Program, in.student.Year)

	fb := a.fallbacks
	in.module = aggregates.ModuleAggregate{
		MeanTotal:   fb.ModuleMeanTotal,
		MeanGrade:   fb.ModuleMeanGrade,
		FailureRate: fb.ModuleFailureRate,
		Enrollment:  int(fb.ModuleEnrollment),
	}
	in.moduleOrigin = OriginDefault
	in.comboRate = fb.ComboFailureRate
	in.comboHigh = fb.ComboFailureRate > fb.UnseenComboHighRisk
	in.comboOrigin = OriginDefault

	if target != "" {
		in.target = target
		in.targetPole = ClassifyModule(target)
		m, err := a.set.Module(target)
		switch {
		case err == nil:
			in.module = m
			in.target = m.Module
			in.moduleOrigin = OriginModule
			in.comboRate = m.FailureRate
			in.comboHigh = m.FailureRate > fb.UnseenComboHighRisk
			in.comboOrigin = OriginComboModule
		case !errors.Is(err, grades.ErrUnknownModule):
			return nil, err
		}
		c, err := a.set.Combo(in.student.Program, target)
		switch {
		case err == nil:
			in.comboRate = c.FailureRate
			in.comboHigh = c.HighRisk
			in.comboOrigin = OriginCombo
		case !errors.Is(err, grades.ErrUnknownModule):
			return nil, err
		}
	}

	in.poles = poleMeans(records)

	if a.programs != nil {
		in.programCode, in.programKnown = a.programs.Encode(in.student.Program)
	}
	if a.poles != nil && in.targetPole != "" {
		in.poleCode, in.poleKnown = a.poles.Encode(string(in.targetPole))
	}
	if !in.programKnown {
		in.programCode = 0
	}
	if !in.poleKnown {
		in.poleCode = 0
	}

	if !fb.ForceZero {
		in.forceFallback = in.student.MeanGrade
	}
	return in, nil
}

func poleMeans(records []grades.Record) map[Pole]float64 {
	sums := map[Pole]float64{}
	counts := map[Pole]int{}
	for _, r := range records {
		p := ClassifyModule(r.Module)
		sums[p] += r.Grade20
		counts[p]++
	}
	out := make(map[Pole]float64, len(sums))
	for p, s := range sums {
		out[p] = s / float64(counts[p])
	}
	return out
}

// observedStep fills the per-record columns with the student's means: there is no
// single current record when scoring a student as a whole.
func observedStep(f *Features, in *inputs) {
	s := in.student
	f.Practical = s.MeanPractical
	f.Theoretical = s.MeanTheoretical
	f.Total = s.MeanTotal
	f.Grade20 = s.MeanGrade
	f.Semester = 1
	f.Year = float64(s.Year)
}

func peerStep(f *Features, in *inputs) {
	f.PeerScope = in.peerScope
	f.PeerMeanTotal = in.peer.MeanTotal
	f.PeerMeanGrade = in.peer.MeanGrade
	f.PeerMeanPractical = in.peer.MeanPractical
	f.PeerSupportRate = in.peer.SupportRate
}

func studentStep(f *Features, in *inputs) {
	s := in.student
	f.StudentMeanTotal = s.MeanTotal
	f.StudentStdTotal = s.StdTotal
	f.StudentMinTotal = s.MinTotal
	f.StudentMaxTotal = s.MaxTotal
	f.StudentModuleCount = float64(s.Count)
	f.StudentMeanGrade = s.MeanGrade
	f.StudentMinGrade = s.MinGrade
	f.StudentStdGrade = s.StdGrade
	f.StudentMeanPractical = s.MeanPractical
	f.StudentMeanTheoretical = s.MeanTheoretical
	f.StudentSupportRate = s.SupportRate
}

func moduleStep(f *Features, in *inputs) {
	f.ModuleOrigin = in.moduleOrigin
	f.ModuleMeanTotal = in.module.MeanTotal
	f.ModuleMeanGrade = in.module.MeanGrade
	f.ModuleFailureRate = in.module.FailureRate
	f.ModuleEnrollment = float64(in.module.Enrollment)
}

func comboStep(f *Features, in *inputs) {
	f.ComboOrigin = in.comboOrigin
	f.ComboFailureRate = in.comboRate
	f.ComboHighRisk = boolFloat(in.comboHigh)
}

func derivedStep(f *Features, in *inputs) {
	s := in.student
	f.DeviationTotal = s.MeanTotal - in.peer.MeanTotal
	f.DeviationGrade = s.MeanGrade - in.peer.MeanGrade
	f.SemesterLoad = float64(s.Count)
	f.AbsenteeRate = s.AbsenteeRate
	f.PracticalRatio = s.MeanPractical / (s.MeanTotal + 1)
	f.TheoryPracticeGap = s.MeanTheoretical - s.MeanPractical
	f.SupportCount = float64(s.SupportCount)
	f.ThresholdDistance = s.MeanGrade - in.threshold
}

func poleStep(f *Features, in *inputs) {
	f.PoleStrength = make(map[Pole]float64, len(in.poles))
	for p, v := range in.poles {
		f.PoleStrength[p] = v
	}
}

func encodeStep(f *Features, in *inputs) {
	f.ProgramCode = float64(in.programCode)
	f.ProgramKnown = in.programKnown
	f.PoleCode = float64(in.poleCode)
	f.PoleKnown = in.poleKnown
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
