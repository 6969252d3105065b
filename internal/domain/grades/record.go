package grades

import (
	"math"
	"strings"
)

// Status is the administrative outcome recorded for a module attempt.
type Status string

const (
	StatusPass       Status = "Pass"
	StatusFail       Status = "Fail"
	StatusAbsent     Status = "Absent"
	StatusDebarred   Status = "Debarred"
	StatusWithdrawal Status = "Withdrawal"
	StatusWithhold   Status = "Withhold"
	StatusExempt     Status = "Exempt"
)

var knownStatuses = []Status{
	StatusPass, StatusFail, StatusAbsent, StatusDebarred,
	StatusWithdrawal, StatusWithhold, StatusExempt,
}

const (
	// ValidationThreshold is the minimum grade out of 20 that validates a module.
	ValidationThreshold = 10.0
	// SupportTotalThreshold is ValidationThreshold on the 0-100 scale of Total.
	SupportTotalThreshold = 50.0
	// TotalToGrade converts a 0-100 Total into a grade out of 20.
	TotalToGrade = 5.0
)

// ParseStatus matches raw text case-insensitively against the known statuses.
// Unrecognized text is kept verbatim (trimmed).
func ParseStatus(raw string) Status {
	s := strings.TrimSpace(raw)
	for _, known := range knownStatuses {
		if strings.EqualFold(s, string(known)) {
			return known
		}
	}
	return Status(s)
}

func (s Status) Known() bool {
	for _, known := range knownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Failing reports statuses that always require support regardless of the grade.
func (s Status) Failing() bool {
	switch s {
	case StatusFail, StatusAbsent, StatusDebarred, StatusWithdrawal:
		return true
	default:
		return false
	}
}

// Absence reports statuses counted towards the absentee rate.
func (s Status) Absence() bool {
	switch s {
	case StatusAbsent, StatusDebarred, StatusWithdrawal:
		return true
	default:
		return false
	}
}

// Record is one cleaned grade line: a student's result in one module.
type Record struct {
	StudentID    string  `json:"student_id"`
	Program      string  `json:"program"`
	Module       string  `json:"module"`
	Year         int     `json:"year"`
	Semester     int     `json:"semester"`
	AcademicYear string  `json:"academic_year,omitempty"`
	Practical    float64 `json:"practical"`
	Theoretical  float64 `json:"theoretical"`
	Total        float64 `json:"total"`
	Grade20      float64 `json:"grade_20"`
	Status       Status  `json:"status"`
	NeedsSupport bool    `json:"needs_support"`
}

// Derive returns a copy with Grade20 and NeedsSupport recomputed from Total and
// Status, and Year/Semester defaulted to 1.
func (r Record) Derive() Record {
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Program = strings.TrimSpace(r.Program)
	r.Module = strings.TrimSpace(r.Module)
	if r.Year <= 0 {
		r.Year = 1
	}
	if r.Semester <= 0 {
		r.Semester = 1
	}
	if !finite(r.Practical) {
		r.Practical = 0
	}
	if !finite(r.Theoretical) {
		r.Theoretical = 0
	}
	if !finite(r.Total) {
		r.Total = r.Practical + r.Theoretical
	}
	r.Grade20 = r.Total / TotalToGrade
	r.NeedsSupport = NeedsSupport(r.Status, r.Total)
	return r
}

// NeedsSupport is true iff the status is failing or the total is below 50/100.
func NeedsSupport(status Status, total float64) bool {
	return status.Failing() || total < SupportTotalThreshold
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
