package aggregator

import (
	"testing"

	"github.com/cyraxred/codeage/internal/blame"
	"github.com/cyraxred/codeage/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalOf(results []Result, idx int, cohort blame.CohortKey) int64 {
	for _, ct := range results[idx].Totals {
		if ct.Cohort == cohort {
			return ct.Lines
		}
	}
	return 0
}

func TestAggregator_TwoCommits(t *testing.T) {
	ch := make(chan snapshot.Action, 16)
	ch <- snapshot.SetCommitID("c0")
	ch <- snapshot.AddFile("a.go", 10, 0)
	ch <- snapshot.AddFile("b.go", 5, 0)
	ch <- snapshot.FinishCommit()
	ch <- snapshot.SetCommitID("c1")
	ch <- snapshot.ModifyFile("a.go", []blame.LineDiff{
		{DeleteStart: 0, DeleteEnd: 0, InsertStart: 0, InsertEnd: 3, Cohort: 1},
	})
	ch <- snapshot.DeleteFile("b.go")
	ch <- snapshot.FinishCommit()
	close(ch)

	agg := New("c0", nil)
	results, err := agg.Run(ch)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, snapshot.CommitID("c0"), results[0].CommitID)
	assert.EqualValues(t, 15, totalOf(results, 0, 0))

	assert.Equal(t, snapshot.CommitID("c1"), results[1].CommitID)
	assert.EqualValues(t, 10, totalOf(results, 1, 0))
	assert.EqualValues(t, 3, totalOf(results, 1, 1))
}

func TestAggregator_ContractViolationStopsAndReturnsPriorResults(t *testing.T) {
	ch := make(chan snapshot.Action, 16)
	ch <- snapshot.AddFile("a.go", 10, 0)
	ch <- snapshot.FinishCommit()
	ch <- snapshot.DeleteFile("missing.go")
	ch <- snapshot.FinishCommit()
	close(ch)

	agg := New("c0", nil)
	results, err := agg.Run(ch)
	assert.Error(t, err)
	require.Len(t, results, 1)
}

func TestAggregator_EmptyChannelYieldsNoResults(t *testing.T) {
	ch := make(chan snapshot.Action)
	close(ch)
	agg := New("c0", nil)
	results, err := agg.Run(ch)
	require.NoError(t, err)
	assert.Empty(t, results)
}
