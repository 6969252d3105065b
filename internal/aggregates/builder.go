package aggregates

import (
	"sort"
	"strings"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// DefaultComboHighRisk is the failure rate above which a seen (program, module)
// pair is flagged high risk.
const DefaultComboHighRisk = 0.3

type Options struct {
	ComboHighRisk float64
}

func DefaultOptions() Options {
	return Options{ComboHighRisk: DefaultComboHighRisk}
}

// Set is every aggregate family computed from one dataset. It is immutable once
// built and tied to DatasetID.
type Set struct {
	DatasetID string

	Students map[string]StudentAggregate
	Modules  map[string]ModuleAggregate
	Peers    map[PeerKey]PeerGroupAggregate
	Programs map[string]PeerGroupAggregate
	Combos   map[ComboKey]ComboAggregate
	Global   PeerGroupAggregate

	studentIDs     []string
	moduleNames    []string
	programNames   []string
	programModules map[string][]string
}

// Build computes all aggregate families. It has no side effects and the same
// input always yields identical output.
func Build(datasetID string, records []grades.Record, opts Options) *Set {
	if opts.ComboHighRisk <= 0 {
		opts.ComboHighRisk = DefaultComboHighRisk
	}
	byStudent := map[string][]grades.Record{}
	byModule := map[string][]grades.Record{}
	byPeer := map[PeerKey][]grades.Record{}
	byProgram := map[string][]grades.Record{}
	byCombo := map[ComboKey][]grades.Record{}
	for _, r := range records {
		mk := ModuleKey(r.Module)
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
		byModule[mk] = append(byModule[mk], r)
		byPeer[PeerKey{Program: r.Program, Year: r.Year}] = append(byPeer[PeerKey{Program: r.Program, Year: r.Year}], r)
		byProgram[r.Program] = append(byProgram[r.Program], r)
		byCombo[ComboKey{Program: r.Program, Module: mk}] = append(byCombo[ComboKey{Program: r.Program, Module: mk}], r)
	}

	s := &Set{
		DatasetID:      datasetID,
		Students:       make(map[string]StudentAggregate, len(byStudent)),
		Modules:        make(map[string]ModuleAggregate, len(byModule)),
		Peers:          make(map[PeerKey]PeerGroupAggregate, len(byPeer)),
		Programs:       make(map[string]PeerGroupAggregate, len(byProgram)),
		Combos:         make(map[ComboKey]ComboAggregate, len(byCombo)),
		Global:         peerGroup(PeerKey{}, records),
		programModules: map[string][]string{},
	}
	for id, rs := range byStudent {
		s.Students[id] = Summarize(rs)
		s.studentIDs = append(s.studentIDs, id)
	}
	for key, rs := range byModule {
		m := moduleAggregate(rs)
		s.Modules[key] = m
		s.moduleNames = append(s.moduleNames, m.Module)
	}
	for key, rs := range byPeer {
		s.Peers[key] = peerGroup(key, rs)
	}
	for program, rs := range byProgram {
		s.Programs[program] = peerGroup(PeerKey{Program: program}, rs)
		s.programNames = append(s.programNames, program)
	}
	for key, rs := range byCombo {
		fr := rate(countSupport(rs), len(rs))
		s.Combos[key] = ComboAggregate{
			Key:         key,
			Count:       len(rs),
			FailureRate: fr,
			HighRisk:    fr > opts.ComboHighRisk,
		}
		display := s.Modules[key.Module].Module
		s.programModules[key.Program] = append(s.programModules[key.Program], display)
	}
	sort.Strings(s.studentIDs)
	sort.Strings(s.moduleNames)
	sort.Strings(s.programNames)
	for p := range s.programModules {
		sort.Strings(s.programModules[p])
	}
	return s
}

// Summarize computes a StudentAggregate from any record subset. Records are put in
// canonical order first so the result does not depend on input order.
func Summarize(records []grades.Record) StudentAggregate {
	if len(records) == 0 {
		return StudentAggregate{}
	}
	rs := canonical(records)
	totals := make([]float64, len(rs))
	grade20 := make([]float64, len(rs))
	practical := make([]float64, len(rs))
	theoretical := make([]float64, len(rs))
	programs := make([]string, len(rs))
	years := make([]int, len(rs))
	support, absent := 0, 0
	for i, r := range rs {
		totals[i] = r.Total
		grade20[i] = r.Grade20
		practical[i] = r.Practical
		theoretical[i] = r.Theoretical
		programs[i] = r.Program
		years[i] = r.Year
		if r.NeedsSupport {
			support++
		}
		if r.Status.Absence() {
			absent++
		}
	}
	t := describe(totals)
	g := describe(grade20)
	return StudentAggregate{
		StudentID:       rs[0].StudentID,
		Program:         modeString(programs),
		Year:            modeInt(years),
		Count:           len(rs),
		MeanTotal:       t.Mean,
		StdTotal:        t.Std,
		MinTotal:        t.Min,
		MaxTotal:        t.Max,
		MeanGrade:       g.Mean,
		StdGrade:        g.Std,
		MinGrade:        g.Min,
		MaxGrade:        g.Max,
		MeanPractical:   mean(practical),
		MeanTheoretical: mean(theoretical),
		SupportCount:    support,
		SupportRate:     rate(support, len(rs)),
		AbsenteeRate:    rate(absent, len(rs)),
	}
}

func moduleAggregate(rs []grades.Record) ModuleAggregate {
	rs = canonical(rs)
	totals := make([]float64, len(rs))
	grade20 := make([]float64, len(rs))
	names := make([]string, len(rs))
	for i, r := range rs {
		totals[i] = r.Total
		grade20[i] = r.Grade20
		names[i] = strings.TrimSpace(r.Module)
	}
	fr := rate(countSupport(rs), len(rs))
	return ModuleAggregate{
		Module:      modeString(names),
		Enrollment:  len(rs),
		MeanTotal:   mean(totals),
		MeanGrade:   mean(grade20),
		FailureRate: fr,
		Difficulty:  ClassifyDifficulty(fr),
	}
}

func peerGroup(key PeerKey, rs []grades.Record) PeerGroupAggregate {
	rs = canonical(rs)
	totals := make([]float64, len(rs))
	grade20 := make([]float64, len(rs))
	practical := make([]float64, len(rs))
	theoretical := make([]float64, len(rs))
	for i, r := range rs {
		totals[i] = r.Total
		grade20[i] = r.Grade20
		practical[i] = r.Practical
		theoretical[i] = r.Theoretical
	}
	return PeerGroupAggregate{
		Key:             key,
		Count:           len(rs),
		MeanTotal:       mean(totals),
		MeanGrade:       mean(grade20),
		MeanPractical:   mean(practical),
		MeanTheoretical: mean(theoretical),
		SupportRate:     rate(countSupport(rs), len(rs)),
	}
}

func countSupport(rs []grades.Record) int {
	n := 0
	for _, r := range rs {
		if r.NeedsSupport {
			n++
		}
	}
	return n
}

// canonical returns a sorted copy so floating point sums are order independent.
func canonical(records []grades.Record) []grades.Record {
	rs := make([]grades.Record, len(records))
	copy(rs, records)
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		if a.Total != b.Total {
			return a.Total < b.Total
		}
		if a.Practical != b.Practical {
			return a.Practical < b.Practical
		}
		if a.Theoretical != b.Theoretical {
			return a.Theoretical < b.Theoretical
		}
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if a.AcademicYear != b.AcademicYear {
			return a.AcademicYear < b.AcademicYear
		}
		return a.StudentID < b.StudentID
	})
	return rs
}
