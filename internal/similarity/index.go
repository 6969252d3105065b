// Package similarity recommends modules to watch for a student from the
// difficulties of the students whose grade profiles are most similar.
package similarity

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

const (
	DefaultNeighbours = 10
	DefaultTop        = 5
)

type Options struct {
	Neighbours int `json:"neighbours" yaml:"neighbours"`
	Top        int `json:"top" yaml:"top"`
}

func DefaultOptions() Options {
	return Options{Neighbours: DefaultNeighbours, Top: DefaultTop}
}

type ModuleCount struct {
	Module string `json:"module"`
	Count  int    `json:"count"`
}

type Neighbour struct {
	StudentID string  `json:"student_id"`
	Distance  float64 `json:"distance"`
}

// Index is a student x module matrix of mean grade_20 (0 where a student has no
// record) with row norms precomputed. It is immutable once built.
type Index struct {
	DatasetID string

	ids     []string
	row     map[string]int
	modules []string
	matrix  *mat.Dense
	norms   []float64
	// support lists, per student row, the module of every record needing support.
	support [][]string
}

func Build(datasetID string, records []grades.Record) *Index {
	ix := &Index{DatasetID: datasetID, row: map[string]int{}}

	colOf := map[string]int{}
	display := map[string]string{}
	for _, r := range records {
		if _, ok := ix.row[r.StudentID]; !ok {
			ix.row[r.StudentID] = 0
			ix.ids = append(ix.ids, r.StudentID)
		}
		key := aggregates.ModuleKey(r.Module)
		if cur, ok := display[key]; !ok || r.Module < cur {
			display[key] = r.Module
		}
	}
	sort.Strings(ix.ids)
	for i, id := range ix.ids {
		ix.row[id] = i
	}
	keys := make([]string, 0, len(display))
	for k := range display {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		colOf[k] = i
		ix.modules = append(ix.modules, display[k])
	}

	n, m := len(ix.ids), len(keys)
	ix.support = make([][]string, n)
	ix.norms = make([]float64, n)
	if n == 0 || m == 0 {
		return ix
	}

	sums := make([]float64, n*m)
	counts := make([]int, n*m)
	for _, r := range records {
		i, j := ix.row[r.StudentID], colOf[aggregates.ModuleKey(r.Module)]
		sums[i*m+j] += r.Grade20
		counts[i*m+j]++
		if r.NeedsSupport {
			ix.support[i] = append(ix.support[i], display[aggregates.ModuleKey(r.Module)])
		}
	}
	for k, c := range counts {
		if c > 0 {
			sums[k] /= float64(c)
		}
	}
	ix.matrix = mat.NewDense(n, m, sums)
	for i := 0; i < n; i++ {
		ix.norms[i] = mat.Norm(ix.matrix.RowView(i), 2)
	}
	return ix
}

func (ix *Index) Len() int { return len(ix.ids) }

func (ix *Index) Has(studentID string) bool {
	_, ok := ix.row[studentID]
	return ok
}

func (ix *Index) distance(i, j int) float64 {
	if ix.norms[i] == 0 || ix.norms[j] == 0 {
		return 1
	}
	return 1 - mat.Dot(ix.matrix.RowView(i), ix.matrix.RowView(j))/(ix.norms[i]*ix.norms[j])
}

// Neighbours returns the students closest to studentID by cosine distance, ties
// broken by id. k counts the student itself, as a neighbourhood query over the
// whole population would, and is capped at n-1; the student is then dropped, so
// at most min(k, n-1)-1 neighbours come back.
func (ix *Index) Neighbours(studentID string, k int) []Neighbour {
	q, ok := ix.row[studentID]
	if !ok || ix.matrix == nil {
		return nil
	}
	if k <= 0 {
		k = DefaultNeighbours
	}
	if k > len(ix.ids)-1 {
		k = len(ix.ids) - 1
	}
	k--
	if k <= 0 {
		return []Neighbour{}
	}
	out := make([]Neighbour, 0, len(ix.ids)-1)
	for i, id := range ix.ids {
		if i == q {
			continue
		}
		out = append(out, Neighbour{StudentID: id, Distance: ix.distance(q, i)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].StudentID < out[b].StudentID
	})
	return out[:k]
}

// Recommend counts, over the nearest neighbours' records, the modules where
// support was needed and returns the most frequent ones (ties by module name).
// Unknown students get an empty result.
func (ix *Index) Recommend(studentID string, opts Options) []ModuleCount {
	if opts.Top <= 0 {
		opts.Top = DefaultTop
	}
	neighbours := ix.Neighbours(studentID, opts.Neighbours)
	tally := map[string]int{}
	for _, nb := range neighbours {
		for _, module := range ix.support[ix.row[nb.StudentID]] {
			tally[module]++
		}
	}
	out := make([]ModuleCount, 0, len(tally))
	for module, c := range tally {
		out = append(out, ModuleCount{Module: module, Count: c})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Module < out[b].Module
	})
	if len(out) > opts.Top {
		out = out[:opts.Top]
	}
	return out
}
