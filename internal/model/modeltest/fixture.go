// Package modeltest provides a small deterministic bundle for tests.
//
// The classifier is a Platt-calibrated logistic model driven by two columns: the
// student's mean grade (strongly protective) and the target module's failure rate.
// Centroids differ only along the mean-grade axis, so the profile follows the
// grade band.
package modeltest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/neurobridge-risk/internal/features"
	"github.com/yungbote/neurobridge-risk/internal/model"
)

const Version = "fixture-1"

// Centroid positions along the scaled mean-grade axis, by cluster id.
var GradeCentroids = []float64{3, 1.2, 0, -1.2, -3}

var Profiles = map[string]string{
	"0": "Excellence",
	"1": "Régulier",
	"2": "En_Progression",
	"3": "En_Difficulté",
	"4": "À_Risque",
}

var Programs = []string{"EEA", "GC", "GM"}

// Bundle returns a fresh fixture bundle; callers may mutate it.
func Bundle() *model.Bundle {
	cols := features.DefaultColumns()
	width := len(cols)
	mean := make([]float64, width)
	scale := make([]float64, width)
	coef := make([]float64, width)
	for i := range scale {
		scale[i] = 1
	}
	grade := indexOf(cols, features.ColStudentMeanGrade)
	rate := indexOf(cols, features.ColModuleFailureRate)
	mean[grade], scale[grade], coef[grade] = 10, 2.5, -3
	mean[rate], scale[rate], coef[rate] = 0.5, 0.25, 1

	centroids := make([][]float64, len(GradeCentroids))
	for i, g := range GradeCentroids {
		centroids[i] = make([]float64, width)
		centroids[i][grade] = g
	}

	var poles []string
	for _, p := range features.AllPoles() {
		poles = append(poles, string(p))
	}

	profiles := make(map[string]string, len(Profiles))
	for k, v := range Profiles {
		profiles[k] = v
	}

	return &model.Bundle{
		Version:             Version,
		Columns:             cols,
		ValidationThreshold: 10,
		Scaler:              model.ScalerSpec{Mean: mean, Scale: scale},
		Classifier: model.ClassifierSpec{
			Kind:        model.KindCalibrated,
			Calibration: &model.CalibrationSpec{A: -1, B: 0},
			Members: []model.ClassifierSpec{
				{Kind: model.KindLogistic, Coef: coef},
			},
		},
		ProgramEncoder: model.EncoderSpec{Classes: append([]string(nil), Programs...)},
		PoleEncoder:    model.EncoderSpec{Classes: poles},
		Clusterer:      model.ClustererSpec{Centroids: centroids},
		Profiles:       profiles,
	}
}

// Model builds the fixture bundle into a ready model.
func Model(t testing.TB) *model.Model {
	t.Helper()
	m, err := model.New(Bundle())
	if err != nil {
		t.Fatalf("fixture model: %v", err)
	}
	return m
}

// Write encodes b under dir and returns its path. Compressed bundles get a .zst
// suffix.
func Write(t testing.TB, dir string, b *model.Bundle, compress bool) string {
	t.Helper()
	name := "bundle.json"
	if compress {
		name += ".zst"
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create bundle: %v", err)
	}
	defer f.Close()
	if err := b.Encode(f, compress); err != nil {
		t.Fatalf("encode bundle: %v", err)
	}
	return path
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	panic("modeltest: missing column " + name)
}
