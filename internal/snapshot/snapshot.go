// Package snapshot holds the single-writer repository blame state: a
// mapping from path to FileBlame plus a running per-cohort line tally.
package snapshot

import (
	"github.com/cyraxred/codeage/internal/blame"
	"github.com/cyraxred/codeage/internal/core"
)

// CommitID is an opaque identifier for the commit a Snapshot currently
// reflects. The core treats it as an opaque string (a VCS object id's
// textual form); callers needing structure can encode it themselves.
type CommitID string

// Snapshot is the RepoSnapshot of the design: it owns every file's blame
// and the aggregate line counts derived from them. It is mutated only by
// the Aggregator and must never be shared across goroutines.
type Snapshot struct {
	commitID           CommitID
	fileBlames         map[string]blame.FileBlame
	runningCohortStats map[blame.CohortKey]int64
}

// New creates an empty Snapshot at the given initial commit id.
func New(commitID CommitID) *Snapshot {
	return &Snapshot{
		commitID:           commitID,
		fileBlames:         make(map[string]blame.FileBlame),
		runningCohortStats: make(map[blame.CohortKey]int64),
	}
}

// CommitID returns the commit id the snapshot currently reflects.
func (s *Snapshot) CommitID() CommitID { return s.commitID }

// SetCommitID updates the commit id the snapshot reflects. Called on every
// SetCommitId Action.
func (s *Snapshot) SetCommitID(id CommitID) { s.commitID = id }

// AddFile inserts a fresh FileBlame for path. It is fatal (an
// InputContractViolation) for path to already be present.
func (s *Snapshot) AddFile(path string, totalLines blame.LineNumber, cohort blame.CohortKey) error {
	if _, exists := s.fileBlames[path]; exists {
		return &core.InputContractViolation{Op: "AddFile", Path: path}
	}
	fb := blame.New(totalLines, cohort)
	s.fileBlames[path] = fb
	s.runningCohortStats[cohort] += int64(totalLines)
	return nil
}

// DeleteFile removes the FileBlame at path, subtracting its cohort stats
// from the running totals. Missing path is fatal.
func (s *Snapshot) DeleteFile(path string) error {
	fb, exists := s.fileBlames[path]
	if !exists {
		return &core.InputContractViolation{Op: "DeleteFile", Path: path}
	}
	for cohort, count := range fb.CohortStats() {
		s.runningCohortStats[cohort] -= count
	}
	delete(s.fileBlames, path)
	return nil
}

// RenameFile moves the FileBlame from oldPath to newPath. Stats are
// unchanged since no lines were added or removed. Missing oldPath is fatal.
func (s *Snapshot) RenameFile(oldPath, newPath string) error {
	fb, exists := s.fileBlames[oldPath]
	if !exists {
		return &core.InputContractViolation{Op: "RenameFile", Path: oldPath}
	}
	delete(s.fileBlames, oldPath)
	s.fileBlames[newPath] = fb
	return nil
}

// ModifyFile applies lineDiffs to the FileBlame at path and folds the
// resulting per-cohort delta into the running totals. Missing path is
// fatal.
func (s *Snapshot) ModifyFile(path string, lineDiffs []blame.LineDiff) error {
	oldBlame, exists := s.fileBlames[path]
	if !exists {
		return &core.InputContractViolation{Op: "ModifyFile", Path: path}
	}
	newBlame := oldBlame.ApplyLineDiffs(lineDiffs)

	oldStats := oldBlame.CohortStats()
	newStats := newBlame.CohortStats()
	delta := make(map[blame.CohortKey]int64, len(oldStats)+len(newStats))
	for cohort, count := range oldStats {
		delta[cohort] -= count
	}
	for cohort, count := range newStats {
		delta[cohort] += count
	}
	for cohort, d := range delta {
		s.runningCohortStats[cohort] += d
	}

	s.fileBlames[path] = newBlame
	return nil
}

// CohortTotal is one entry of SnapshotTotals: a cohort and its current
// aggregate line count across the whole tree.
type CohortTotal struct {
	Cohort blame.CohortKey
	Lines  int64
}

// SnapshotTotals returns a copy of the running cohort stats as a flat
// sequence, safe to retain after further mutation of the Snapshot.
func (s *Snapshot) SnapshotTotals() []CohortTotal {
	out := make([]CohortTotal, 0, len(s.runningCohortStats))
	for cohort, lines := range s.runningCohortStats {
		out = append(out, CohortTotal{Cohort: cohort, Lines: lines})
	}
	return out
}

// FileCount returns the number of files currently tracked, for tests and
// diagnostics.
func (s *Snapshot) FileCount() int { return len(s.fileBlames) }
