package aggregates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

// Student returns the cached aggregate for a student id.
func (s *Set) Student(id string) (StudentAggregate, bool) {
	a, ok := s.Students[id]
	return a, ok
}

// Module looks up a module by name. A miss is an unknown_module error, which
// callers resolve with default statistics.
func (s *Set) Module(name string) (ModuleAggregate, error) {
	if m, ok := s.Modules[ModuleKey(name)]; ok {
		return m, nil
	}
	return ModuleAggregate{}, grades.NewError(grades.CodeUnknownModule, "aggregates.Module", fmt.Sprintf("module %q has no history", name), nil)
}

// Combo looks up the (program, module) pair.
func (s *Set) Combo(program, module string) (ComboAggregate, error) {
	if c, ok := s.Combos[ComboKey{Program: program, Module: ModuleKey(module)}]; ok {
		return c, nil
	}
	return ComboAggregate{}, grades.NewError(grades.CodeUnknownModule, "aggregates.Combo", fmt.Sprintf("no history for %q in program %q", module, program), nil)
}

// Peer resolves cohort statistics: (program, year) first, then the program
// rollup, then the global dataset means.
func (s *Set) Peer(program string, year int) (PeerGroupAggregate, PeerScope) {
	if p, ok := s.Peers[PeerKey{Program: program, Year: year}]; ok {
		return p, PeerScopeCohort
	}
	if p, ok := s.Programs[program]; ok {
		return p, PeerScopeProgram
	}
	return s.Global, PeerScopeGlobal
}

func (s *Set) StudentIDs() []string   { return append([]string(nil), s.studentIDs...) }
func (s *Set) ModuleNames() []string  { return append([]string(nil), s.moduleNames...) }
func (s *Set) ProgramNames() []string { return append([]string(nil), s.programNames...) }

// ProgramModules lists the modules ever taken in a program, sorted by name.
func (s *Set) ProgramModules(program string) []string {
	return append([]string(nil), s.programModules[program]...)
}

// SearchModules returns modules whose name contains q (case-insensitive), hardest
// first, at most limit entries.
func (s *Set) SearchModules(q string, limit int) []ModuleAggregate {
	q = ModuleKey(q)
	var out []ModuleAggregate
	for key, m := range s.Modules {
		if q == "" || strings.Contains(key, q) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FailureRate != out[j].FailureRate {
			return out[i].FailureRate > out[j].FailureRate
		}
		return out[i].Module < out[j].Module
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SearchStudents returns aggregates whose id contains q, sorted by id.
func (s *Set) SearchStudents(q string, limit int) []StudentAggregate {
	q = strings.TrimSpace(q)
	var out []StudentAggregate
	for _, id := range s.studentIDs {
		if q != "" && !strings.Contains(id, q) {
			continue
		}
		out = append(out, s.Students[id])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
