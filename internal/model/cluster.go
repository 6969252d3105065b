package model

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// UnknownProfile is returned for cluster ids with no profile name.
const UnknownProfile = "Inconnu"

// KMeans assigns a scaled vector to its nearest centroid (squared Euclidean
// distance, lowest id on ties).
type KMeans struct {
	centroids [][]float64
	profiles  map[int]string
}

func NewKMeans(spec ClustererSpec, profiles map[string]string) *KMeans {
	k := &KMeans{profiles: make(map[int]string, len(profiles))}
	for _, c := range spec.Centroids {
		k.centroids = append(k.centroids, append([]float64(nil), c...))
	}
	for key, name := range profiles {
		if id, err := strconv.Atoi(key); err == nil {
			k.profiles[id] = name
		}
	}
	return k
}

func (k *KMeans) K() int { return len(k.centroids) }

func (k *KMeans) Assign(x []float64) (int, error) {
	best, bestDist := -1, math.Inf(1)
	for id, c := range k.centroids {
		if len(c) != len(x) {
			return -1, shapeError("model.KMeans", len(x), len(c))
		}
		if d := floats.Distance(x, c, 2); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, nil
}

// ProfileName maps a cluster id to its profile, or UnknownProfile.
func (k *KMeans) ProfileName(cluster int) string {
	if name, ok := k.profiles[cluster]; ok && name != "" {
		return name
	}
	return UnknownProfile
}

// AssignProfile returns the nearest cluster and its profile name.
func (k *KMeans) AssignProfile(x []float64) (string, int, error) {
	id, err := k.Assign(x)
	if err != nil {
		return "", -1, err
	}
	return k.ProfileName(id), id, nil
}
