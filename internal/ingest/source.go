package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects the reader used for a Source.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindSQL  Kind = "sql"
)

// Source describes one raw tabular input. File sources use Path; SQL sources use
// Driver, DSN and Table.
type Source struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind   Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Sheet  string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table  string `json:"table,omitempty" yaml:"table,omitempty"`
}

// FileSource infers the kind from the file extension.
func FileSource(path string) Source {
	return Source{Path: path}.Normalize()
}

// Normalize trims fields and infers Kind from the path when unset.
func (s Source) Normalize() Source {
	s.Name = strings.TrimSpace(s.Name)
	s.Path = strings.TrimSpace(s.Path)
	s.Sheet = strings.TrimSpace(s.Sheet)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	s.DSN = strings.TrimSpace(s.DSN)
	s.Table = strings.TrimSpace(s.Table)
	s.Kind = Kind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	if s.Kind == "" {
		switch {
		case s.DSN != "":
			s.Kind = KindSQL
		case strings.HasSuffix(strings.ToLower(s.Path), ".xlsx"):
			s.Kind = KindXLSX
		default:
			s.Kind = KindCSV
		}
	}
	if s.Kind == KindSQL && s.Table == "" {
		s.Table = defaultTable
	}
	return s
}

// Label identifies the source in logs and reports. DSNs are never used.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Kind == KindSQL {
		return fmt.Sprintf("%s:%s", s.Driver, s.Table)
	}
	return filepath.Base(s.Path)
}

// Watchable reports whether the source is a local file that can be watched.
func (s Source) Watchable() bool {
	return s.Kind != KindSQL && s.Path != ""
}

// Validate checks that the fields required by Kind are present.
func (s Source) Validate() error {
	switch s.Kind {
	case KindCSV, KindXLSX:
		if s.Path == "" {
			return fmt.Errorf("source %q: path is required", s.Label())
		}
	case KindSQL:
		if s.DSN == "" {
			return fmt.Errorf("source %q: dsn is required", s.Label())
		}
		switch s.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("source %q: unsupported driver %q", s.Label(), s.Driver)
		}
	default:
		return fmt.Errorf("source %q: unsupported kind %q", s.Label(), s.Kind)
	}
	return nil
}
