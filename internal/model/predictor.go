package model

import (
	"context"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/features"
)

// Info describes the loaded artifact.
type Info struct {
	Available bool     `json:"available"`
	Version   string   `json:"version,omitempty"`
	Checksum  string   `json:"checksum,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Columns   int      `json:"columns"`
	Clusters  int      `json:"clusters,omitempty"`
	Threshold float64  `json:"validation_threshold"`
	Programs  []string `json:"programs,omitempty"`
	Poles     []string `json:"poles,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Output is one model pass over a vector.
type Output struct {
	Probability float64
	Label       bool
	Cluster     int
	Profile     string
}

// Predictor runs the learned path. Implementations are safe for concurrent use.
type Predictor interface {
	Info() Info
	Columns() []string
	Encoders() (programs, poles features.Encoder)
	Predict(ctx context.Context, v features.Vector) (Output, error)
}

// Model is a Predictor backed by a validated Bundle.
type Model struct {
	bundle     *Bundle
	scaler     *StandardScaler
	classifier Classifier
	clusterer  *KMeans
	programs   *LabelEncoder
	poles      *LabelEncoder
}

func New(b *Bundle) (*Model, error) {
	if err := b.Validate(); err != nil {
		return nil, grades.Wrap(grades.CodeModelUnavailable, "model.New", err)
	}
	clf, err := NewClassifier(b.Classifier, len(b.Columns))
	if err != nil {
		return nil, grades.Wrap(grades.CodeModelUnavailable, "model.New", err)
	}
	return &Model{
		bundle:     b,
		scaler:     NewStandardScaler(b.Scaler),
		classifier: clf,
		clusterer:  NewKMeans(b.Clusterer, b.Profiles),
		programs:   NewLabelEncoder(b.ProgramEncoder),
		poles:      NewLabelEncoder(b.PoleEncoder),
	}, nil
}

// Load reads and builds a model from a bundle file.
func Load(path string) (*Model, error) {
	b, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	return New(b)
}

func (m *Model) Info() Info {
	return Info{
		Available: true,
		Version:   m.bundle.Version,
		Checksum:  m.bundle.Checksum,
		Kind:      normalizeKind(m.bundle.Classifier.Kind),
		Columns:   len(m.bundle.Columns),
		Clusters:  m.clusterer.K(),
		Threshold: m.bundle.ValidationThreshold,
		Programs:  m.programs.Classes(),
		Poles:     m.poles.Classes(),
	}
}

func (m *Model) Columns() []string { return append([]string(nil), m.bundle.Columns...) }

func (m *Model) Encoders() (features.Encoder, features.Encoder) { return m.programs, m.poles }

// Predict scales the vector once and feeds the scaled values to both the
// classifier and the clusterer.
func (m *Model) Predict(ctx context.Context, v features.Vector) (Output, error) {
	const op = "model.Predict"
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if err := v.CheckWidth(len(m.bundle.Columns)); err != nil {
		return Output{}, err
	}
	scaled, err := m.scaler.Scale(v.Values)
	if err != nil {
		return Output{}, err
	}
	p, err := m.classifier.PredictProba(scaled)
	if err != nil {
		return Output{}, grades.Wrap(grades.CodeOf(err), op, err)
	}
	label, err := m.classifier.Predict(scaled)
	if err != nil {
		return Output{}, grades.Wrap(grades.CodeOf(err), op, err)
	}
	profile, cluster, err := m.clusterer.AssignProfile(scaled)
	if err != nil {
		return Output{}, err
	}
	return Output{Probability: clamp01(p), Label: label, Cluster: cluster, Profile: profile}, nil
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Unavailable stands in for a model that failed to load. Every prediction fails
// with a model_unavailable error wrapping the load cause.
type Unavailable struct {
	cause error
}

func NewUnavailable(cause error) *Unavailable { return &Unavailable{cause: cause} }

func (u *Unavailable) Cause() error { return u.cause }

func (u *Unavailable) Info() Info {
	info := Info{Columns: len(features.DefaultColumns()), Threshold: grades.ValidationThreshold}
	if u.cause != nil {
		info.Error = u.cause.Error()
	}
	return info
}

func (u *Unavailable) Columns() []string { return features.DefaultColumns() }

func (u *Unavailable) Encoders() (features.Encoder, features.Encoder) { return nil, nil }

func (u *Unavailable) Predict(context.Context, features.Vector) (Output, error) {
	return Output{}, grades.NewError(grades.CodeModelUnavailable, "model.Predict", "no model loaded", u.cause)
}
