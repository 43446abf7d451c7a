package codeage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyraxred/codeage/internal/blame"
	"github.com/cyraxred/codeage/internal/sampler"
	"github.com/cyraxred/codeage/internal/vcs"
)

// fakeRepo implements vcs.Collaborator over a hand-constructed history, so
// the whole pipeline can run without a real repository.
type fakeRepo struct {
	mu      sync.Mutex
	history []vcs.CommitInfo
	changes map[string][]vcs.Change
	lines   map[string]blame.LineNumber
	hunks   map[string][]vcs.LineHunk
}

func (f *fakeRepo) FirstParentHistory(ctx context.Context) ([]vcs.CommitInfo, error) {
	return f.history, nil
}

func (f *fakeRepo) Diff(ctx context.Context, oldTreeID, newTreeID string) ([]vcs.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changes[oldTreeID+"->"+newTreeID], nil
}

func (f *fakeRepo) CountLines(ctx context.Context, blobID string) (blame.LineNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[blobID], nil
}

func (f *fakeRepo) DiffLines(ctx context.Context, path string, oldBlobID, newBlobID string) ([]vcs.LineHunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hunks[oldBlobID+"->"+newBlobID], nil
}

func (f *fakeRepo) Clone() (vcs.Collaborator, error) { return f, nil }

func when(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return tm
}

// A three-commit history with known per-file composition: the y matrix's
// column sums must equal the tree's total line count at every sample.
func TestRun_EndToEnd(t *testing.T) {
	repo := &fakeRepo{
		// Newest first, matching a backward walk from HEAD.
		history: []vcs.CommitInfo{
			{ID: "c2", Time: when(t, "2022-06-01 12:00:00"), TreeID: "t2"},
			{ID: "c1", Time: when(t, "2021-06-01 12:00:00"), TreeID: "t1"},
			{ID: "c0", Time: when(t, "2020-06-01 12:00:00"), TreeID: "t0"},
		},
		changes: map[string][]vcs.Change{
			"->t0": {
				{Kind: vcs.ChangeAddition, Path: "a.go", NewMode: vcs.ModeBlob, NewBlobID: "a1"},
			},
			"t0->t1": {
				{Kind: vcs.ChangeModification, Path: "a.go", OldMode: vcs.ModeBlob, NewMode: vcs.ModeBlob, OldBlobID: "a1", NewBlobID: "a2"},
				{Kind: vcs.ChangeAddition, Path: "b.go", NewMode: vcs.ModeBlob, NewBlobID: "b1"},
			},
			"t1->t2": {
				{Kind: vcs.ChangeDeletion, Path: "b.go", OldMode: vcs.ModeBlob, OldBlobID: "b1"},
				{Kind: vcs.ChangeRewrite, OldPath: "a.go", Path: "c.go", OldMode: vcs.ModeBlob, NewMode: vcs.ModeBlob, OldBlobID: "a2", NewBlobID: "a2"},
			},
		},
		lines: map[string]blame.LineNumber{"a1": 10, "a2": 12, "b1": 5},
		hunks: map[string][]vcs.LineHunk{
			// Replace lines [2,4) of a1 with 4 new lines: 10 -> 12 lines.
			"a1->a2": {{OldStart: 2, OldEnd: 4, NewStart: 2, NewEnd: 6}},
		},
	}

	output, err := Run(context.Background(), repo, Config{
		Granularity:     sampler.Yearly,
		TreeDiffWorkers: 2,
		DispatchWorkers: 2,
	})
	require.NoError(t, err)

	require.Equal(t, []string{"Code added in 2020", "Code added in 2021"}, output.Labels)
	require.Equal(t, []string{
		"2020-06-01 12:00:00",
		"2021-06-01 12:00:00",
		"2022-06-01 12:00:00",
	}, output.Timestamps)

	// Column sums equal the tree's total line count at each sample: 10,
	// then 12+5, then 12 after b.go is deleted and a.go renamed.
	wantTotals := []int64{10, 17, 12}
	for i, want := range wantTotals {
		var sum int64
		for k := range output.Labels {
			sum += output.Y[k][i]
		}
		assert.Equal(t, want, sum, "sample %d", i)
	}

	assert.Equal(t, []int64{10, 8, 8}, output.Y[0])
	assert.Equal(t, []int64{0, 9, 4}, output.Y[1])
}

func TestRun_TimestampsNonDecreasing(t *testing.T) {
	repo := &fakeRepo{
		history: []vcs.CommitInfo{
			{ID: "c3", Time: when(t, "2022-03-01 00:00:00"), TreeID: "t3"},
			{ID: "c2", Time: when(t, "2022-02-01 00:00:00"), TreeID: "t2"},
			{ID: "c1", Time: when(t, "2022-01-01 00:00:00"), TreeID: "t1"},
		},
		changes: map[string][]vcs.Change{
			"->t1": {{Kind: vcs.ChangeAddition, Path: "a.go", NewMode: vcs.ModeBlob, NewBlobID: "a1"}},
		},
		lines: map[string]blame.LineNumber{"a1": 3},
	}

	output, err := Run(context.Background(), repo, Config{Granularity: sampler.Monthly})
	require.NoError(t, err)
	require.Len(t, output.Timestamps, 3)
	for i := 1; i < len(output.Timestamps); i++ {
		assert.LessOrEqual(t, output.Timestamps[i-1], output.Timestamps[i])
	}
}

func TestRun_PathAllowlistFiltersChanges(t *testing.T) {
	repo := &fakeRepo{
		history: []vcs.CommitInfo{
			{ID: "c0", Time: when(t, "2022-01-01 00:00:00"), TreeID: "t0"},
		},
		changes: map[string][]vcs.Change{
			"->t0": {
				{Kind: vcs.ChangeAddition, Path: "keep.go", NewMode: vcs.ModeBlob, NewBlobID: "k1"},
				{Kind: vcs.ChangeAddition, Path: "skip.bin", NewMode: vcs.ModeBlob, NewBlobID: "s1"},
			},
		},
		lines: map[string]blame.LineNumber{"k1": 7, "s1": 1000},
	}

	output, err := Run(context.Background(), repo, Config{
		Granularity: sampler.Monthly,
		PathAllowed: func(path string) bool { return path == "keep.go" },
	})
	require.NoError(t, err)
	require.Len(t, output.Y, 1)
	assert.Equal(t, []int64{7}, output.Y[0])
}

func TestRun_EmptyHistory(t *testing.T) {
	repo := &fakeRepo{}
	output, err := Run(context.Background(), repo, Config{Granularity: sampler.Weekly})
	require.NoError(t, err)
	assert.Empty(t, output.Timestamps)
	assert.Empty(t, output.Labels)
}
