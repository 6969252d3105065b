package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classifier turns a scaled vector into a failure probability.
type Classifier interface {
	PredictProba(x []float64) (float64, error)
	Predict(x []float64) (bool, error)
}

// margin is implemented by classifiers with a raw decision function that a Platt
// calibrator can wrap.
type margin interface {
	Margin(x []float64) (float64, error)
}

// NewClassifier builds a classifier from its spec, selecting the implementation by
// kind.
func NewClassifier(spec ClassifierSpec, width int) (Classifier, error) {
	if err := validateClassifier(spec, width, "classifier"); err != nil {
		return nil, err
	}
	return build(spec)
}

func build(spec ClassifierSpec) (Classifier, error) {
	threshold := spec.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	switch normalizeKind(spec.Kind) {
	case KindLogistic:
		return &Logistic{coef: append([]float64(nil), spec.Coef...), intercept: spec.Intercept, threshold: threshold}, nil
	case KindTreeEnsemble:
		return &TreeEnsemble{trees: spec.Trees, base: spec.BaseScore, threshold: threshold}, nil
	case KindCalibrated:
		inner, err := build(spec.Members[0])
		if err != nil {
			return nil, err
		}
		m, ok := inner.(margin)
		if !ok {
			return nil, fmt.Errorf("calibrated member %q has no decision function", spec.Members[0].Kind)
		}
		return &Calibrated{base: m, a: spec.Calibration.A, b: spec.Calibration.B, threshold: threshold}, nil
	case KindCalibratedEnsemble:
		e := &Ensemble{threshold: threshold}
		for _, ms := range spec.Members {
			c, err := build(ms)
			if err != nil {
				return nil, err
			}
			e.members = append(e.members, c)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported classifier kind %q", spec.Kind)
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

type Logistic struct {
	coef      []float64
	intercept float64
	threshold float64
}

func (l *Logistic) Margin(x []float64) (float64, error) {
	if len(x) != len(l.coef) {
		return 0, shapeError("model.Logistic", len(x), len(l.coef))
	}
	return l.intercept + floats.Dot(l.coef, x), nil
}

func (l *Logistic) PredictProba(x []float64) (float64, error) {
	z, err := l.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(z), nil
}

func (l *Logistic) Predict(x []float64) (bool, error) {
	return predictWith(l, l.threshold, x)
}

// TreeEnsemble is a boosted ensemble of regression trees with a logistic link.
type TreeEnsemble struct {
	trees     []TreeSpec
	base      float64
	threshold float64
}

func (t *TreeEnsemble) Margin(x []float64) (float64, error) {
	z := t.base
	for i, tree := range t.trees {
		v, err := walk(tree, x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		z += v
	}
	return z, nil
}

func walk(tree TreeSpec, x []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(tree.Nodes); steps++ {
		n := tree.Nodes[idx]
		if n.Left < 0 {
			return n.Leaf, nil
		}
		if n.Feature >= len(x) {
			return 0, shapeError("model.TreeEnsemble", len(x), n.Feature+1)
		}
		if x[n.Feature] < n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return 0, fmt.Errorf("tree has a cycle")
}

func (t *TreeEnsemble) PredictProba(x []float64) (float64, error) {
	z, err := t.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(z), nil
}

func (t *TreeEnsemble) Predict(x []float64) (bool, error) {
	return predictWith(t, t.threshold, x)
}

// Calibrated maps a base decision value m through 1 / (1 + exp(a*m + b)).
type Calibrated struct {
	base      margin
	a, b      float64
	threshold float64
}

func (c *Calibrated) PredictProba(x []float64) (float64, error) {
	m, err := c.base.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(-(c.a*m + c.b)), nil
}

func (c *Calibrated) Predict(x []float64) (bool, error) {
	return predictWith(c, c.threshold, x)
}

// Ensemble averages member probabilities.
type Ensemble struct {
	members   []Classifier
	threshold float64
}

func (e *Ensemble) PredictProba(x []float64) (float64, error) {
	var sum float64
	for _, m := range e.members {
		p, err := m.PredictProba(x)
		if err != nil {
			return 0, err
		}
		sum += p
	}
	return sum / float64(len(e.members)), nil
}

func (e *Ensemble) Predict(x []float64) (bool, error) {
	return predictWith(e, e.threshold, x)
}

func predictWith(c Classifier, threshold float64, x []float64) (bool, error) {
	p, err := c.PredictProba(x)
	if err != nil {
		return false, err
	}
	return p >= threshold, nil
}
