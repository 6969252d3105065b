package risk

import (
	"encoding/json"
	"fmt"
)

// Estimate is how a probability was obtained: LearnedEstimate or
// HeuristicEstimate. The interface is closed to this package.
type Estimate interface {
	Prob() float64
	Label() bool
	isEstimate()
}

// LearnedEstimate comes from the trained classifier and clusterer.
type LearnedEstimate struct {
	Probability    float64 `json:"probability"`
	PredictedLabel bool    `json:"predicted_label"`
	Profile        string  `json:"profile"`
	Cluster        int     `json:"cluster"`
	BundleVersion  string  `json:"bundle_version,omitempty"`
}

func (e LearnedEstimate) Prob() float64 { return e.Probability }
func (e LearnedEstimate) Label() bool   { return e.PredictedLabel }
func (LearnedEstimate) isEstimate()     {}

// HeuristicEstimate is the fallback computed from grade band, module failure
// rate and grade stability.
type HeuristicEstimate struct {
	Probability float64 `json:"probability"`
	Band        float64 `json:"band"`
	ModuleRate  float64 `json:"module_rate"`
	Stability   float64 `json:"stability"`
	// Cause is why the learned path was not used.
	Cause string `json:"cause,omitempty"`
}

func (e HeuristicEstimate) Prob() float64 { return e.Probability }
func (e HeuristicEstimate) Label() bool   { return e.Probability >= 0.5 }
func (HeuristicEstimate) isEstimate()     {}

// UsingModel is true only for learned estimates.
func UsingModel(e Estimate) bool {
	_, ok := e.(LearnedEstimate)
	return ok
}

// Prediction is the scoring result for one (student, target module) pair.
type Prediction struct {
	StudentID       string
	TargetModule    string
	Probability     float64
	PredictedLabel  bool
	Profile         Profile
	Category        Category
	Recommendations []string
	Estimate        Estimate
	SnapshotID      string
	BundleVersion   string
}

// NewPrediction fills the derived fields from an estimate. The profile comes from
// the clusterer for learned estimates and from the grade band otherwise.
func NewPrediction(studentID, target string, est Estimate, meanGrade float64) Prediction {
	p := est.Prob()
	cat, recs := Categorize(p)
	profile := ProfileForGrade(meanGrade)
	if l, ok := est.(LearnedEstimate); ok {
		profile = ParseProfile(l.Profile)
	}
	return Prediction{
		StudentID:       studentID,
		TargetModule:    target,
		Probability:     p,
		PredictedLabel:  est.Label(),
		Profile:         profile,
		Category:        cat,
		Recommendations: recs,
		Estimate:        est,
	}
}

func (p Prediction) UsingModel() bool { return p.Estimate != nil && UsingModel(p.Estimate) }

type predictionJSON struct {
	StudentID       string          `json:"student_id"`
	TargetModule    string          `json:"target_module,omitempty"`
	Probability     float64         `json:"probability"`
	PredictedLabel  bool            `json:"predicted_label"`
	Profile         Profile         `json:"profile"`
	Category        Category        `json:"category"`
	UsingModel      bool            `json:"using_model"`
	Recommendations []string        `json:"recommendations"`
	Estimate        json.RawMessage `json:"estimate,omitempty"`
	SnapshotID      string          `json:"snapshot_id,omitempty"`
	BundleVersion   string          `json:"bundle_version,omitempty"`
}

const (
	kindLearned   = "learned"
	kindHeuristic = "heuristic"
)

// MarshalJSON always emits using_model and tags the estimate with its kind.
func (p Prediction) MarshalJSON() ([]byte, error) {
	out := predictionJSON{
		StudentID:       p.StudentID,
		TargetModule:    p.TargetModule,
		Probability:     p.Probability,
		PredictedLabel:  p.PredictedLabel,
		Profile:         p.Profile,
		Category:        p.Category,
		UsingModel:      p.UsingModel(),
		Recommendations: p.Recommendations,
		SnapshotID:      p.SnapshotID,
		BundleVersion:   p.BundleVersion,
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	var err error
	switch e := p.Estimate.(type) {
	case LearnedEstimate:
		out.Estimate, err = tagged(kindLearned, e)
	case HeuristicEstimate:
		out.Estimate, err = tagged(kindHeuristic, e)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (p *Prediction) UnmarshalJSON(b []byte) error {
	var in predictionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*p = Prediction{
		StudentID:       in.StudentID,
		TargetModule:    in.TargetModule,
		Probability:     in.Probability,
		PredictedLabel:  in.PredictedLabel,
		Profile:         in.Profile,
		Category:        in.Category,
		Recommendations: in.Recommendations,
		SnapshotID:      in.SnapshotID,
		BundleVersion:   in.BundleVersion,
	}
	if len(in.Estimate) == 0 {
		return nil
	}
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(in.Estimate, &head); err != nil {
		return err
	}
	switch head.Kind {
	case kindLearned:
		var e LearnedEstimate
		if err := json.Unmarshal(in.Estimate, &e); err != nil {
			return err
		}
		p.Estimate = e
	case kindHeuristic:
		var e HeuristicEstimate
		if err := json.Unmarshal(in.Estimate, &e); err != nil {
			return err
		}
		p.Estimate = e
	default:
		return fmt.Errorf("unknown estimate kind %q", head.Kind)
	}
	return nil
}

func tagged(kind string, e Estimate) (json.RawMessage, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["kind"] = kind
	return json.Marshal(m)
}
