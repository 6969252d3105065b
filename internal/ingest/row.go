package ingest

import (
	"strings"
)

// Raw column names.
const (
	colID          = "id"
	colMajor       = "major"
	colSubject     = "subject"
	colMajorYear   = "majoryear"
	colOfficalYear = "officalyear"
	colPractical   = "practical"
	colTheoretical = "theoretical"
	colTotal       = "total"
	colStatus      = "status"
	colSemester    = "semester"
)

var requiredColumns = []string{colID, colMajor, colSubject}

// RawRow is one uncleaned input line. Empty strings stand for null cells.
type RawRow struct {
	ID          string
	Major       string
	Subject     string
	MajorYear   string
	OfficalYear string
	Practical   string
	Theoretical string
	Total       string
	Status      string
	Semester    string

	Source    string
	Line      int
	Malformed string
}

// header maps normalized column names to cell indexes.
type header map[string]int

func parseHeader(cells []string) header {
	h := make(header, len(cells))
	for i, c := range cells {
		key := normalizeColumn(c)
		if key == "" {
			continue
		}
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

// normalizeColumn lowercases and strips spaces, underscores and a UTF-8 BOM so that
// "MajorYear", "major_year" and " Major Year" all match.
func normalizeColumn(c string) string {
	c = strings.TrimPrefix(c, "\ufeff")
	c = strings.ToLower(strings.TrimSpace(c))
	c = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(c)
	return c
}

func (h header) missing() []string {
	var out []string
	for _, c := range requiredColumns {
		if _, ok := h[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func (h header) row(cells []string, source string, line int) RawRow {
	get := func(col string) string {
		i, ok := h[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}
	return RawRow{
		ID:          get(colID),
		Major:       get(colMajor),
		Subject:     get(colSubject),
		MajorYear:   get(colMajorYear),
		OfficalYear: get(colOfficalYear),
		Practical:   get(colPractical),
		Theoretical: get(colTheoretical),
		Total:       get(colTotal),
		Status:      get(colStatus),
		Semester:    get(colSemester),
		Source:      source,
		Line:        line,
	}
}
