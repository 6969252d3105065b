package ingest

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// Drop reasons recorded in Report.Dropped.
const (
	DropMissingID      = "missing_id"
	DropMissingProgram = "missing_program"
	DropMissingModule  = "missing_module"
	DropPlaceholder    = "unknown_placeholder"
	DropMalformed      = "malformed"
)

// Report summarizes one load.
type Report struct {
	Sources []SourceReport `json:"sources"`
	Read    int            `json:"read"`
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped"`
}

type SourceReport struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// DroppedTotal sums all drop reasons.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// DropReasons returns the drop reasons in sorted order.
func (r Report) DropReasons() []string {
	out := make([]string, 0, len(r.Dropped))
	for k := range r.Dropped {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clean turns raw rows into grade records. Rows with unusable identifiers or
// labels are excluded and counted; they never fail the load.
func Clean(rows []RawRow) ([]grades.Record, Report) {
	rep := Report{Read: len(rows), Dropped: map[string]int{}}
	out := make([]grades.Record, 0, len(rows))
	for _, row := range rows {
		if reason := dropReason(row); reason != "" {
			rep.Dropped[reason]++
			continue
		}
		out = append(out, toRecord(row))
	}
	rep.Kept = len(out)
	return out, rep
}

func dropReason(row RawRow) string {
	if row.Malformed != "" {
		return DropMalformed
	}
	switch {
	case isNull(row.ID):
		return DropMissingID
	case isNull(row.Major):
		return DropMissingProgram
	case isNull(row.Subject):
		return DropMissingModule
	}
	for _, v := range []string{row.ID, row.Major, row.Subject} {
		if strings.Contains(strings.ToLower(v), "unknown") {
			return DropPlaceholder
		}
	}
	return ""
}

// isNull treats empty cells and the textual null markers of spreadsheet/dataframe
// exports as missing.
func isNull(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "none", "null", "<na>":
		return true
	default:
		return false
	}
}

func toRecord(row RawRow) grades.Record {
	practical, okP := parseNumber(row.Practical)
	if !okP {
		practical = 0
	}
	theoretical, okT := parseNumber(row.Theoretical)
	if !okT {
		theoretical = 0
	}
	total, okTotal := parseNumber(row.Total)
	if !okTotal {
		total = math.NaN()
	}
	rec := grades.Record{
		StudentID:    normalizeID(row.ID),
		Program:      strings.TrimSpace(row.Major),
		Module:       strings.TrimSpace(row.Subject),
		Year:         parseInt(row.MajorYear, 1),
		Semester:     parseInt(row.Semester, 1),
		AcademicYear: strings.TrimSpace(row.OfficalYear),
		Practical:    practical,
		Theoretical:  theoretical,
		Total:        total,
		Status:       grades.ParseStatus(row.Status),
	}
	return rec.Derive()
}

// normalizeID strips the ".0" suffix numeric exports add to integer ids.
func normalizeID(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(v, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(v, ".0")
		}
	}
	return v
}

func parseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseInt(v string, def int) int {
	f, ok := parseNumber(v)
	if !ok {
		return def
	}
	return int(f)
}
