package grades

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	require.Equal(t, StatusFail, ParseStatus(" fail "))
	require.Equal(t, StatusWithdrawal, ParseStatus("WITHDRAWAL"))
	require.Equal(t, Status("Rattrapage"), ParseStatus("Rattrapage "))
	require.False(t, ParseStatus("Rattrapage").Known())
	require.True(t, ParseStatus("exempt").Known())
}

func TestNeedsSupport(t *testing.T) {
	cases := []struct {
		status Status
		total  float64
		want   bool
	}{
		{StatusPass, 75, false},
		{StatusPass, 49.5, true},
		{StatusPass, 50, false},
		{StatusFail, 90, true},
		{StatusAbsent, 0, true},
		{StatusDebarred, 80, true},
		{StatusWithdrawal, 80, true},
		{StatusWithhold, 80, false},
		{StatusExempt, 80, false},
		{Status("Other"), 60, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%v", tc.status, tc.total), func(t *testing.T) {
			require.Equal(t, tc.want, NeedsSupport(tc.status, tc.total))
		})
	}
}

func TestRecordDerive(t *testing.T) {
	r := Record{
		StudentID:   " 42 ",
		Program:     "EEA",
		Module:      "Analyse 1",
		Practical:   20,
		Theoretical: 25,
		Total:       math.NaN(),
		Status:      StatusPass,
	}.Derive()

	require.Equal(t, "42", r.StudentID)
	require.Equal(t, 45.0, r.Total)
	require.Equal(t, 9.0, r.Grade20)
	require.True(t, r.NeedsSupport)
	require.Equal(t, 1, r.Year)
	require.Equal(t, 1, r.Semester)
}

func TestErrorSentinels(t *testing.T) {
	err := fmt.Errorf("score: %w", NewError(CodeUnknownStudent, "scoring.Score", "student 7 has no records", nil))
	require.True(t, errors.Is(err, ErrUnknownStudent))
	require.False(t, errors.Is(err, ErrDataLoad))
	require.True(t, IsCode(err, CodeUnknownStudent))
	require.Equal(t, CodeUnknownStudent, CodeOf(err))
	require.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	require.Nil(t, Wrap(CodeInternal, "op", nil))

	inner := NewError(CodeFeatureShape, "model.Scale", "width 3, want 4", nil)
	outer := Wrap(CodeInternal, "scoring.Score", inner)
	require.True(t, errors.Is(outer, ErrFeatureShape))
	require.Equal(t, "scoring.Score: model.Scale: width 3, want 4 (feature_shape) (internal)", outer.Error())
}
