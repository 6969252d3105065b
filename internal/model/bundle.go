package model

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// Classifier kinds understood by NewClassifier.
const (
	KindLogistic           = "logistic"
	KindTreeEnsemble       = "tree_ensemble"
	KindCalibrated         = "calibrated"
	KindCalibratedEnsemble = "calibrated_ensemble"
)

const DefaultThreshold = 0.5

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Bundle is the trained artifact: everything needed to turn a feature vector into a
// probability and a profile. It is read-only once loaded.
type Bundle struct {
	Version             string            `json:"version"`
	Columns             []string          `json:"columns"`
	ValidationThreshold float64           `json:"validation_threshold,omitempty"`
	Scaler              ScalerSpec        `json:"scaler"`
	Classifier          ClassifierSpec    `json:"classifier"`
	ProgramEncoder      EncoderSpec       `json:"program_encoder"`
	PoleEncoder         EncoderSpec       `json:"pole_encoder"`
	Clusterer           ClustererSpec     `json:"clusterer"`
	Profiles            map[string]string `json:"profiles"`

	// Checksum is the sha256 of the raw bundle bytes; set by DecodeBundle.
	Checksum string `json:"-"`
}

type ScalerSpec struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// ClassifierSpec describes one classifier. Members nest for calibrated and
// ensemble kinds.
type ClassifierSpec struct {
	Kind      string  `json:"kind"`
	Threshold float64 `json:"threshold,omitempty"`

	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	Trees     []TreeSpec `json:"trees,omitempty"`
	BaseScore float64    `json:"base_score,omitempty"`

	Calibration *CalibrationSpec `json:"calibration,omitempty"`
	Members     []ClassifierSpec `json:"members,omitempty"`
}

// CalibrationSpec holds Platt parameters: p = 1 / (1 + exp(A*m + B)).
type CalibrationSpec struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type TreeSpec struct {
	Nodes []NodeSpec `json:"nodes"`
}

// NodeSpec is a split when Left >= 0, otherwise a leaf carrying Leaf.
type NodeSpec struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      float64 `json:"leaf"`
}

type EncoderSpec struct {
	Classes []string `json:"classes"`
}

type ClustererSpec struct {
	Centroids [][]float64 `json:"centroids"`
}

// LoadBundle reads a bundle from disk. Files may be plain JSON or zstd-compressed
// JSON; compression is detected from the content.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, grades.NewError(grades.CodeModelUnavailable, "model.LoadBundle", "open bundle", err)
	}
	defer f.Close()
	return DecodeBundle(f)
}

func DecodeBundle(r io.Reader) (*Bundle, error) {
	const op = "model.DecodeBundle"
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, grades.NewError(grades.CodeModelUnavailable, op, "open zstd stream", err)
		}
		defer zr.Close()
		src = zr
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, grades.NewError(grades.CodeModelUnavailable, op, "read bundle", err)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, grades.NewError(grades.CodeModelUnavailable, op, "decode bundle", err)
	}
	sum := sha256.Sum256(raw)
	b.Checksum = hex.EncodeToString(sum[:])
	if strings.TrimSpace(b.Version) == "" {
		b.Version = "sha256:" + b.Checksum[:12]
	}
	if b.ValidationThreshold <= 0 {
		b.ValidationThreshold = grades.ValidationThreshold
	}
	if err := b.Validate(); err != nil {
		return nil, grades.Wrap(grades.CodeModelUnavailable, op, err)
	}
	return &b, nil
}

// Validate checks that every component agrees on the column width.
func (b *Bundle) Validate() error {
	width := len(b.Columns)
	if width == 0 {
		return fmt.Errorf("bundle has no columns")
	}
	seen := make(map[string]struct{}, width)
	for _, c := range b.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	if len(b.Scaler.Mean) != width || len(b.Scaler.Scale) != width {
		return fmt.Errorf("scaler width mean=%d scale=%d, want %d", len(b.Scaler.Mean), len(b.Scaler.Scale), width)
	}
	if err := validateClassifier(b.Classifier, width, "classifier"); err != nil {
		return err
	}
	if len(b.Clusterer.Centroids) == 0 {
		return fmt.Errorf("clusterer has no centroids")
	}
	for i, c := range b.Clusterer.Centroids {
		if len(c) != width {
			return fmt.Errorf("centroid %d width %d, want %d", i, len(c), width)
		}
	}
	for k := range b.Profiles {
		if _, err := strconv.Atoi(k); err != nil {
			return fmt.Errorf("profile key %q is not a cluster id", k)
		}
	}
	return nil
}

func validateClassifier(s ClassifierSpec, width int, path string) error {
	if s.Threshold < 0 || s.Threshold >= 1 {
		return fmt.Errorf("%s: threshold %v outside [0,1)", path, s.Threshold)
	}
	switch normalizeKind(s.Kind) {
	case KindLogistic:
		if len(s.Coef) != width {
			return fmt.Errorf("%s: %d coefficients, want %d", path, len(s.Coef), width)
		}
	case KindTreeEnsemble:
		if len(s.Trees) == 0 {
			return fmt.Errorf("%s: no trees", path)
		}
		for ti, t := range s.Trees {
			if len(t.Nodes) == 0 {
				return fmt.Errorf("%s: tree %d is empty", path, ti)
			}
			for ni, n := range t.Nodes {
				if n.Left < 0 {
					continue
				}
				if n.Feature < 0 || n.Feature >= width {
					return fmt.Errorf("%s: tree %d node %d feature %d out of range", path, ti, ni, n.Feature)
				}
				if n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
					return fmt.Errorf("%s: tree %d node %d has dangling child", path, ti, ni)
				}
			}
		}
	case KindCalibrated:
		if s.Calibration == nil || len(s.Members) != 1 {
			return fmt.Errorf("%s: calibrated needs calibration and exactly one member", path)
		}
		return validateClassifier(s.Members[0], width, path+".members[0]")
	case KindCalibratedEnsemble:
		if len(s.Members) == 0 {
			return fmt.Errorf("%s: ensemble has no members", path)
		}
		for i, m := range s.Members {
			if err := validateClassifier(m, width, fmt.Sprintf("%s.members[%d]", path, i)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unsupported classifier kind %q", path, s.Kind)
	}
	return nil
}

func normalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	switch k {
	case "logistic_regression", "logreg":
		return KindLogistic
	case "gbt", "xgboost", "gradient_boosting":
		return KindTreeEnsemble
	case "sigmoid", "platt":
		return KindCalibrated
	case "ensemble":
		return KindCalibratedEnsemble
	}
	return k
}

// Encode writes the bundle as JSON, compressing with zstd when compress is set.
func (b *Bundle) Encode(w io.Writer, compress bool) error {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	if !compress {
		_, err = w.Write(raw)
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
