package snapshot

import (
	"testing"

	"github.com/cyraxred/codeage/internal/blame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumTotals(s *Snapshot) int64 {
	var sum int64
	for _, ct := range s.SnapshotTotals() {
		sum += ct.Lines
	}
	return sum
}

// Conservation: the sum of the running cohort stats equals the sum of
// every file's total_lines, after any sequence of operations.
func TestConservation(t *testing.T) {
	s := New("c0")
	require.NoError(t, s.AddFile("a.go", 10, 0))
	require.NoError(t, s.AddFile("b.go", 20, 0))
	assert.EqualValues(t, 30, sumTotals(s))

	require.NoError(t, s.ModifyFile("a.go", []blame.LineDiff{
		{DeleteStart: 0, DeleteEnd: 0, InsertStart: 0, InsertEnd: 5, Cohort: 1},
	}))
	assert.EqualValues(t, 35, sumTotals(s))

	require.NoError(t, s.DeleteFile("b.go"))
	assert.EqualValues(t, 15, sumTotals(s))

	require.NoError(t, s.RenameFile("a.go", "a2.go"))
	assert.EqualValues(t, 15, sumTotals(s))
	assert.Equal(t, 1, s.FileCount())
}

// RenameFile leaves the running cohort stats pointwise unchanged.
func TestRenamePreservesStats(t *testing.T) {
	s := New("c0")
	require.NoError(t, s.AddFile("a.go", 10, 7))
	before := s.SnapshotTotals()

	require.NoError(t, s.RenameFile("a.go", "b.go"))
	after := s.SnapshotTotals()
	assert.ElementsMatch(t, before, after)
}

func TestAddFileOnExistingPathIsFatal(t *testing.T) {
	s := New("c0")
	require.NoError(t, s.AddFile("a.go", 1, 0))
	err := s.AddFile("a.go", 2, 0)
	assert.Error(t, err)
}

func TestOperationsOnMissingPathAreFatal(t *testing.T) {
	s := New("c0")
	assert.Error(t, s.DeleteFile("missing.go"))
	assert.Error(t, s.RenameFile("missing.go", "x.go"))
	assert.Error(t, s.ModifyFile("missing.go", nil))
}

func TestActionApply(t *testing.T) {
	s := New("c0")
	require.NoError(t, AddFile("a.go", 10, 0).Apply(s))
	require.NoError(t, SetCommitID("c1").Apply(s))
	assert.Equal(t, CommitID("c1"), s.CommitID())
	require.NoError(t, RenameFile("a.go", "b.go").Apply(s))
	require.NoError(t, FinishCommit().Apply(s))
	require.NoError(t, DeleteFile("b.go").Apply(s))
	assert.Equal(t, 0, s.FileCount())
}
