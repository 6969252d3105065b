// Package snapshot holds one immutable generation of everything scoring reads:
// the cleaned dataset, its aggregates, the similarity index and the model.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/yungbote/neurobridge-risk/internal/aggregates"
	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
	"github.com/yungbote/neurobridge-risk/internal/ingest"
	"github.com/yungbote/neurobridge-risk/internal/model"
	"github.com/yungbote/neurobridge-risk/internal/similarity"
)

type Snapshot struct {
	ID       string
	Seq      uint64
	LoadedAt time.Time

	Dataset    *ingest.Dataset
	Aggregates *aggregates.Set
	Similarity *similarity.Index
	Model      model.Predictor
	// ModelErr is the bundle load failure when Model is Unavailable.
	ModelErr error

	byStudent map[string][]grades.Record
}

// Info is the JSON summary of a snapshot.
type Info struct {
	ID        string        `json:"id"`
	Seq       uint64        `json:"seq"`
	LoadedAt  time.Time     `json:"loaded_at"`
	DatasetID string        `json:"dataset_id"`
	Records   int           `json:"records"`
	Students  int           `json:"students"`
	Modules   int           `json:"modules"`
	Programs  int           `json:"programs"`
	Report    ingest.Report `json:"report"`
	Model     model.Info    `json:"model"`
}

func newSnapshot(id string, seq uint64, ds *ingest.Dataset, set *aggregates.Set, idx *similarity.Index, m model.Predictor, modelErr error) *Snapshot {
	by := make(map[string][]grades.Record, len(set.Students))
	for _, r := range ds.Records {
		by[r.StudentID] = append(by[r.StudentID], r)
	}
	return &Snapshot{
		ID:         id,
		Seq:        seq,
		LoadedAt:   time.Now().UTC(),
		Dataset:    ds,
		Aggregates: set,
		Similarity: idx,
		Model:      m,
		ModelErr:   modelErr,
		byStudent:  by,
	}
}

// FromDataset builds an unpublished snapshot synchronously. A nil predictor is
// replaced by model.Unavailable wrapping modelErr.
func FromDataset(ds *ingest.Dataset, opts aggregates.Options, m model.Predictor, modelErr error) *Snapshot {
	if m == nil {
		if modelErr == nil {
			modelErr = grades.NewError(grades.CodeModelUnavailable, "snapshot.FromDataset", "no model supplied", nil)
		}
		m = model.NewUnavailable(modelErr)
	}
	set := aggregates.Build(ds.ID, ds.Records, opts)
	idx := similarity.Build(ds.ID, ds.Records)
	return newSnapshot(ds.ID, 0, ds, set, idx, m, modelErr)
}

// Records returns a copy of a student's records, or nil for unknown ids.
func (s *Snapshot) Records(studentID string) []grades.Record {
	rs := s.byStudent[studentID]
	if len(rs) == 0 {
		return nil
	}
	return append([]grades.Record(nil), rs...)
}

func (s *Snapshot) HasStudent(studentID string) bool {
	_, ok := s.byStudent[studentID]
	return ok
}

// Consistent reports whether every derived structure was built from this
// snapshot's dataset.
func (s *Snapshot) Consistent() bool {
	if s.Dataset == nil || s.Aggregates == nil || s.Similarity == nil {
		return false
	}
	return s.Aggregates.DatasetID == s.Dataset.ID && s.Similarity.DatasetID == s.Dataset.ID
}

func (s *Snapshot) Info() Info {
	info := Info{
		ID:       s.ID,
		Seq:      s.Seq,
		LoadedAt: s.LoadedAt,
	}
	if s.Dataset != nil {
		info.DatasetID = s.Dataset.ID
		info.Records = len(s.Dataset.Records)
		info.Report = s.Dataset.Report
	}
	if s.Aggregates != nil {
		info.Students = len(s.Aggregates.Students)
		info.Modules = len(s.Aggregates.Modules)
		info.Programs = len(s.Aggregates.Programs)
	}
	if s.Model != nil {
		info.Model = s.Model.Info()
	}
	return info
}

// Store publishes the current snapshot. Readers never block.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

func NewStore() *Store { return &Store{} }

// Current returns the published snapshot, or nil before the first load.
func (st *Store) Current() *Snapshot { return st.cur.Load() }

// Swap publishes s and returns the previous snapshot.
func (st *Store) Swap(s *Snapshot) *Snapshot { return st.cur.Swap(s) }
