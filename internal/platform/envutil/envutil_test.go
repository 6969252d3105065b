package envutil

import "testing"

func TestParsers(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD_INT", "forty")
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	t.Setenv("ENVUTIL_BOOL", "on")
	t.Setenv("ENVUTIL_LIST", " a.csv, ,b.xlsx ")

	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: got %v", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: want true")
	}
	if !Bool("ENVUTIL_UNSET", true) {
		t.Fatalf("Bool default: want true")
	}
	got := List("ENVUTIL_LIST")
	if len(got) != 2 || got[0] != "a.csv" || got[1] != "b.xlsx" {
		t.Fatalf("List: got %v", got)
	}
	if String("ENVUTIL_UNSET", "x") != "x" {
		t.Fatalf("String default")
	}
}
