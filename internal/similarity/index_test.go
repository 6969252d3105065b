package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-risk/internal/domain/grades"
)

func rec(id, module string, grade20 float64) grades.Record {
	status := grades.StatusPass
	if grade20 < 10 {
		status = grades.StatusFail
	}
	return grades.Record{StudentID: id, Program: "EEA", Module: module, Total: grade20 * 5, Status: status}.Derive()
}

func fixture() []grades.Record {
	return []grades.Record{
		rec("s1", "A", 16), rec("s1", "B", 14),
		rec("s2", "A", 15), rec("s2", "B", 13), rec("s2", "C", 6),
		rec("s3", "A", 4), rec("s3", "B", 5),
		rec("s4", "C", 18),
		rec("s5", "A", 8), rec("s5", "B", 12),
	}
}

func TestNeighboursOrderAndTies(t *testing.T) {
	ix := Build("ds", fixture())
	require.Equal(t, 5, ix.Len())

	nb := ix.Neighbours("s1", 3)
	require.Len(t, nb, 2, "k counts the query student")
	assert.Equal(t, []string{"s3", "s5"}, []string{nb[0].StudentID, nb[1].StudentID})

	nb = ix.Neighbours("s4", 10)
	require.Len(t, nb, 3, "k is capped at n-1 before the query is dropped")
	ids := []string{nb[0].StudentID, nb[1].StudentID, nb[2].StudentID}
	assert.Equal(t, []string{"s2", "s1", "s3"}, ids)
	assert.Equal(t, 1.0, nb[1].Distance)

	assert.Empty(t, ix.Neighbours("s1", 1))
}

func TestNeighboursSmallPopulation(t *testing.T) {
	ix := Build("ds", []grades.Record{rec("x", "A", 12), rec("y", "A", 4)})
	assert.Empty(t, ix.Neighbours("x", 10))
	assert.Empty(t, ix.Recommend("x", DefaultOptions()))
}

func TestRecommendExcludesQuery(t *testing.T) {
	ix := Build("ds", fixture())
	got := ix.Recommend("s3", Options{Neighbours: 2})
	assert.Equal(t, []ModuleCount{{Module: "A", Count: 1}}, got)
}

func TestRecommendTalliesAndCaps(t *testing.T) {
	ix := Build("ds", fixture())
	got := ix.Recommend("s1", Options{Neighbours: 4, Top: 2})
	// Neighbours s3, s5, s2: A twice (s3, s5), B once (s3), C once (s2).
	assert.Equal(t, []ModuleCount{{Module: "A", Count: 2}, {Module: "B", Count: 1}}, got)

	got = ix.Recommend("s1", DefaultOptions())
	assert.Equal(t, []ModuleCount{{"A", 2}, {"B", 1}, {"C", 1}}, got)
}

func TestRecommendUnknownStudent(t *testing.T) {
	ix := Build("ds", fixture())
	got := ix.Recommend("nobody", DefaultOptions())
	assert.Empty(t, got)
	assert.False(t, ix.Has("nobody"))
}

func TestBuildEmpty(t *testing.T) {
	ix := Build("ds", nil)
	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.Recommend("s1", DefaultOptions()))
}

func TestModuleNamesAreCaseFolded(t *testing.T) {
	rs := []grades.Record{rec("x", "Analyse 1", 12), rec("y", "ANALYSE  1", 4), rec("z", "analyse 1", 3)}
	ix := Build("ds", rs)
	got := ix.Recommend("x", DefaultOptions())
	// n=3 leaves a single neighbour, y, the nearest by id among equal distances.
	assert.Equal(t, []ModuleCount{{Module: "ANALYSE  1", Count: 1}}, got)
}
