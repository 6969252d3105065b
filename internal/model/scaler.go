package model

import (
	"fmt"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

type Scaler interface {
	Scale(x []float64) ([]float64, error)
	Width() int
}

// StandardScaler applies (x - mean) / scale per column. A zero scale is treated as
// one, matching how constant columns were fitted.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func NewStandardScaler(spec ScalerSpec) *StandardScaler {
	s := &StandardScaler{
		mean:  append([]float64(nil), spec.Mean...),
		scale: append([]float64(nil), spec.Scale...),
	}
	for i, v := range s.scale {
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s
}

func (s *StandardScaler) Width() int { return len(s.mean) }

func (s *StandardScaler) Scale(x []float64) ([]float64, error) {
	if len(x) != len(s.mean) {
		return nil, shapeError("model.Scale", len(x), len(s.mean))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

func shapeError(op string, got, want int) error {
	return grades.NewError(grades.CodeFeatureShape, op, fmt.Sprintf("width %d, want %d", got, want), nil)
}
