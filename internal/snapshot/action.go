package snapshot

import "github.com/cyraxred/codeage/internal/blame"

// ActionKind discriminates the Action tagged variant.
type ActionKind int

const (
	// ActionAddFile inserts a new file at Path with TotalLines lines
	// attributed to Cohort.
	ActionAddFile ActionKind = iota
	// ActionDeleteFile removes the file at Path.
	ActionDeleteFile
	// ActionRenameFile moves the file at OldPath to Path.
	ActionRenameFile
	// ActionModifyFile applies LineDiffs to the file at Path.
	ActionModifyFile
	// ActionSetCommitID updates the snapshot's current commit id.
	ActionSetCommitID
	// ActionFinishCommit signals the Aggregator to snapshot totals.
	ActionFinishCommit
)

// Action is the mutation message consumed by the Aggregator. Exactly one
// set of fields is meaningful depending on Kind.
type Action struct {
	Kind ActionKind

	Path    string
	OldPath string

	TotalLines blame.LineNumber
	Cohort     blame.CohortKey
	LineDiffs  []blame.LineDiff

	CommitID CommitID
}

// AddFile builds an ActionAddFile message.
func AddFile(path string, totalLines blame.LineNumber, cohort blame.CohortKey) Action {
	return Action{Kind: ActionAddFile, Path: path, TotalLines: totalLines, Cohort: cohort}
}

// DeleteFile builds an ActionDeleteFile message.
func DeleteFile(path string) Action {
	return Action{Kind: ActionDeleteFile, Path: path}
}

// RenameFile builds an ActionRenameFile message.
func RenameFile(oldPath, newPath string) Action {
	return Action{Kind: ActionRenameFile, OldPath: oldPath, Path: newPath}
}

// ModifyFile builds an ActionModifyFile message.
func ModifyFile(path string, lineDiffs []blame.LineDiff) Action {
	return Action{Kind: ActionModifyFile, Path: path, LineDiffs: lineDiffs}
}

// SetCommitID builds an ActionSetCommitID message.
func SetCommitID(id CommitID) Action {
	return Action{Kind: ActionSetCommitID, CommitID: id}
}

// FinishCommit builds an ActionFinishCommit message.
func FinishCommit() Action {
	return Action{Kind: ActionFinishCommit}
}

// Apply dispatches the Action to the appropriate Snapshot method. It is a
// convenience used by the Aggregator's consume loop.
func (a Action) Apply(s *Snapshot) error {
	switch a.Kind {
	case ActionAddFile:
		return s.AddFile(a.Path, a.TotalLines, a.Cohort)
	case ActionDeleteFile:
		return s.DeleteFile(a.Path)
	case ActionRenameFile:
		return s.RenameFile(a.OldPath, a.Path)
	case ActionModifyFile:
		return s.ModifyFile(a.Path, a.LineDiffs)
	case ActionSetCommitID:
		s.SetCommitID(a.CommitID)
		return nil
	case ActionFinishCommit:
		return nil
	}
	return nil
}
