package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsHashesStudentIDs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"student_id", "20231234", "module", "Analyse 1", "dsn", "postgres://u:p@h/db"})
	if len(out) != 6 {
		t.Fatalf("len: want=6 got=%d", len(out))
	}
	hashed, _ := out[1].(string)
	if !strings.HasPrefix(hashed, "hash:") || len(hashed) != len("hash:")+12 {
		t.Fatalf("student_id: want hash:<12 hex> got=%q", hashed)
	}
	if out[3] != "Analyse 1" {
		t.Fatalf("module: want=%q got=%v", "Analyse 1", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("dsn: want redacted got=%v", out[5])
	}
}

func TestSanitizeKVsStableHash(t *testing.T) {
	a := sanitizeKVs([]interface{}{"student_id", "s-1"})
	b := sanitizeKVs([]interface{}{"student_id", "s-1"})
	if a[1] != b[1] {
		t.Fatalf("hash not stable: %v vs %v", a[1], b[1])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"k", "v", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("dangling key lost: %v", out)
	}
}
