package model_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/model"
	"github.com/yungbote/neurobridge-risk/internal/model/modeltest"
)

func fixtureVector(grade20, moduleRate float64) features.Vector {
	cols := features.DefaultColumns()
	v := features.Vector{Columns: cols, Values: make([]float64, len(cols))}
	for i, c := range cols {
		switch c {
		case features.ColStudentMeanGrade:
			v.Values[i] = grade20
		case features.ColModuleFailureRate:
			v.Values[i] = moduleRate
		case features.ColTotal:
			v.Values[i] = grade20 * 5
		}
	}
	return v
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func TestFixtureModelPredict(t *testing.T) {
	m := modeltest.Model(t)
	ctx := context.Background()

	out, err := m.Predict(ctx, fixtureVector(17.5, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(-9), out.Probability, 1e-12)
	assert.False(t, out.Label)
	assert.Equal(t, 0, out.Cluster)
	assert.Equal(t, "Excellence", out.Profile)

	out, err = m.Predict(ctx, fixtureVector(10, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Probability, 1e-12)
	assert.True(t, out.Label)
	assert.Equal(t, "En_Progression", out.Profile)

	out, err = m.Predict(ctx, fixtureVector(2.5, 1))
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(11), out.Probability, 1e-12)
	assert.Equal(t, "À_Risque", out.Profile)
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	m := modeltest.Model(t)
	v := fixtureVector(12, 0.2)
	v.Columns = v.Columns[:len(v.Columns)-1]
	v.Values = v.Values[:len(v.Values)-1]

	_, err := m.Predict(context.Background(), v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, grades.ErrFeatureShape))
}

func TestPredictHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := modeltest.Model(t).Predict(ctx, fixtureVector(12, 0.2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInfo(t *testing.T) {
	info := modeltest.Model(t).Info()
	assert.True(t, info.Available)
	assert.Equal(t, modeltest.Version, info.Version)
	assert.Equal(t, model.KindCalibrated, info.Kind)
	assert.Equal(t, len(features.DefaultColumns()), info.Columns)
	assert.Equal(t, 5, info.Clusters)
	assert.Equal(t, modeltest.Programs, info.Programs)
	assert.Equal(t, 10.0, info.Threshold)
}

func TestEncoders(t *testing.T) {
	programs, poles := modeltest.Model(t).Encoders()
	code, ok := programs.Encode("GC")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	_, ok = programs.Encode("MECA")
	assert.False(t, ok)

	code, ok = poles.Encode(string(features.PoleControl))
	assert.True(t, ok)
	assert.Equal(t, 0, code)
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("bundle missing")
	u := model.NewUnavailable(cause)

	_, err := u.Predict(context.Background(), fixtureVector(12, 0.2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, grades.ErrModelUnavailable))
	assert.ErrorIs(t, err, cause)

	info := u.Info()
	assert.False(t, info.Available)
	assert.Equal(t, "bundle missing", info.Error)
	assert.Equal(t, features.DefaultColumns(), u.Columns())
	programs, poles := u.Encoders()
	assert.Nil(t, programs)
	assert.Nil(t, poles)
}

func TestBundleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plain := modeltest.Write(t, dir, modeltest.Bundle(), false)

	zdir := t.TempDir()
	compressed := modeltest.Write(t, zdir, modeltest.Bundle(), true)

	a, err := model.LoadBundle(plain)
	require.NoError(t, err)
	b, err := model.LoadBundle(compressed)
	require.NoError(t, err)

	assert.Equal(t, modeltest.Version, a.Version)
	assert.NotEmpty(t, a.Checksum)
	assert.Equal(t, a.Checksum, b.Checksum)
	assert.Equal(t, a.Columns, b.Columns)

	m, err := model.Load(compressed)
	require.NoError(t, err)
	out, err := m.Predict(context.Background(), fixtureVector(17.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, "Excellence", out.Profile)
}

func TestDecodeBundleDefaults(t *testing.T) {
	b := modeltest.Bundle()
	b.Version = ""
	b.ValidationThreshold = 0
	var buf bytes.Buffer
	require.NoError(t, b.Encode(&buf, false))

	got, err := model.DecodeBundle(&buf)
	require.NoError(t, err)
	assert.Equal(t, "sha256:"+got.Checksum[:12], got.Version)
	assert.Equal(t, grades.ValidationThreshold, got.ValidationThreshold)
}

func TestLoadBundleErrors(t *testing.T) {
	_, err := model.LoadBundle(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.Is(err, grades.ErrModelUnavailable))

	_, err = model.DecodeBundle(bytes.NewBufferString("{not json"))
	assert.True(t, errors.Is(err, grades.ErrModelUnavailable))
}

func TestBundleValidate(t *testing.T) {
	cases := map[string]func(b *model.Bundle){
		"no columns":       func(b *model.Bundle) { b.Columns = nil },
		"duplicate column": func(b *model.Bundle) { b.Columns[1] = b.Columns[0] },
		"scaler width":     func(b *model.Bundle) { b.Scaler.Mean = b.Scaler.Mean[1:] },
		"unknown kind":     func(b *model.Bundle) { b.Classifier.Kind = "svm" },
		"coef width":       func(b *model.Bundle) { b.Classifier.Members[0].Coef = []float64{1} },
		"no calibration":   func(b *model.Bundle) { b.Classifier.Calibration = nil },
		"no centroids":     func(b *model.Bundle) { b.Clusterer.Centroids = nil },
		"centroid width":   func(b *model.Bundle) { b.Clusterer.Centroids[2] = []float64{0} },
		"profile key":      func(b *model.Bundle) { b.Profiles["first"] = "Excellence" },
		"threshold":        func(b *model.Bundle) { b.Classifier.Threshold = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := modeltest.Bundle()
			mutate(b)
			assert.Error(t, b.Validate())
			_, err := model.New(b)
			assert.True(t, errors.Is(err, grades.ErrModelUnavailable))
		})
	}
	assert.NoError(t, modeltest.Bundle().Validate())
}

func TestTreeEnsemble(t *testing.T) {
	spec := model.ClassifierSpec{
		Kind:      "xgboost",
		BaseScore: 0.5,
		Trees: []model.TreeSpec{{Nodes: []model.NodeSpec{
			{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
			{Left: -1, Leaf: -1},
			{Left: -1, Leaf: 2},
		}}},
	}
	clf, err := model.NewClassifier(spec, 2)
	require.NoError(t, err)

	p, err := clf.PredictProba([]float64{0, 9})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(-0.5), p, 1e-12)

	p, err = clf.PredictProba([]float64{0.5, 9})
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(2.5), p, 1e-12)

	label, err := clf.Predict([]float64{0, 0})
	require.NoError(t, err)
	assert.False(t, label)

	spec.Trees[0].Nodes[0].Right = 7
	_, err = model.NewClassifier(spec, 2)
	assert.Error(t, err)
}

func TestEnsembleAveragesMembers(t *testing.T) {
	spec := model.ClassifierSpec{
		Kind: model.KindCalibratedEnsemble,
		Members: []model.ClassifierSpec{
			{Kind: model.KindLogistic, Coef: []float64{1}},
			{Kind: model.KindLogistic, Coef: []float64{-1}},
			{
				Kind:        model.KindCalibrated,
				Calibration: &model.CalibrationSpec{A: -2, B: 0},
				Members:     []model.ClassifierSpec{{Kind: model.KindLogistic, Coef: []float64{0}, Intercept: 1}},
			},
		},
	}
	clf, err := model.NewClassifier(spec, 1)
	require.NoError(t, err)
	p, err := clf.PredictProba([]float64{2})
	require.NoError(t, err)
	want := (sigmoid(2) + sigmoid(-2) + sigmoid(2)) / 3
	assert.InDelta(t, want, p, 1e-12)

	_, err = clf.PredictProba([]float64{1, 2})
	assert.True(t, errors.Is(err, grades.ErrFeatureShape))
}

func TestClassifierThreshold(t *testing.T) {
	clf, err := model.NewClassifier(model.ClassifierSpec{Kind: "logistic", Coef: []float64{1}, Threshold: 0.3}, 1)
	require.NoError(t, err)
	// sigmoid(-0.4) is about 0.401
	label, err := clf.Predict([]float64{-0.4})
	require.NoError(t, err)
	assert.True(t, label)
}

func TestStandardScaler(t *testing.T) {
	s := model.NewStandardScaler(model.ScalerSpec{Mean: []float64{1, 2}, Scale: []float64{2, 0}})
	got, err := s.Scale([]float64{5, 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, got)

	_, err = s.Scale([]float64{1})
	assert.True(t, errors.Is(err, grades.ErrFeatureShape))
}

func TestKMeans(t *testing.T) {
	k := model.NewKMeans(model.ClustererSpec{Centroids: [][]float64{{0, 0}, {2, 0}, {1, 5}}},
		map[string]string{"0": "Régulier", "1": "Excellence"})

	name, id, err := k.AssignProfile([]float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, id, "ties go to the lowest id")
	assert.Equal(t, "Régulier", name)

	name, id, err = k.AssignProfile([]float64{1, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, model.UnknownProfile, name)

	_, _, err = k.AssignProfile([]float64{1})
	assert.True(t, errors.Is(err, grades.ErrFeatureShape))
}
