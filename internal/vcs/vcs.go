// Package vcs declares the narrow interfaces the core consumes from the
// version-control system: a commit lister, a tree-differ, and a blob
// line-differ. The core makes no assumption about their internals; the
// concrete implementation in gogit.go is backed by go-git.
package vcs

import (
	"context"
	"time"

	"github.com/cyraxred/codeage/internal/blame"
)

// CommitInfo is one first-parent ancestor: its id, committer time, and the
// id of its root tree.
type CommitInfo struct {
	ID     string
	Time   time.Time
	TreeID string
}

// CommitLister lists first-parent ancestors of the current head.
type CommitLister interface {
	// FirstParentHistory returns commits from HEAD backwards (newest
	// first, i.e. descending time).
	FirstParentHistory(ctx context.Context) ([]CommitInfo, error)
}

// EntryMode distinguishes blob (regular or executable file) entries from
// everything else (directories, submodules, symlinks treated as non-blob
// for diff purposes).
type EntryMode int

const (
	ModeNonBlob EntryMode = iota
	ModeBlob
)

// ChangeKind discriminates the Change tagged variant reported by a
// TreeDiffer.
type ChangeKind int

const (
	ChangeAddition ChangeKind = iota
	ChangeDeletion
	ChangeModification
	ChangeRewrite
)

// Change is one path-level difference between two trees.
type Change struct {
	Kind ChangeKind

	// Path is the new path for Addition/Modification/Rewrite, or the
	// removed path for Deletion.
	Path string
	// OldPath is set only for Rewrite: the path the content was renamed
	// from.
	OldPath string

	OldMode EntryMode
	NewMode EntryMode

	OldBlobID string
	NewBlobID string
}

// TreeDiffer enumerates Changes between two trees, identified by tree id,
// with rename detection enabled. An empty oldTreeID means "diff against an
// empty tree" (sample index 0).
type TreeDiffer interface {
	Diff(ctx context.Context, oldTreeID, newTreeID string) ([]Change, error)
}

// LineHunk is one Myers diff hunk: lines [OldStart, OldEnd) in the source
// blob correspond to lines [NewStart, NewEnd) in the destination blob.
type LineHunk struct {
	OldStart, OldEnd blame.LineNumber
	NewStart, NewEnd blame.LineNumber
}

// BlobLineDiffer produces a Myers line-level diff between two blobs.
type BlobLineDiffer interface {
	DiffLines(ctx context.Context, path string, oldBlobID, newBlobID string) ([]LineHunk, error)
}

// BlobSource reports a blob's line count by id; it does not expose the raw
// blob bytes.
type BlobSource interface {
	CountLines(ctx context.Context, blobID string) (blame.LineNumber, error)
}

// Collaborator bundles the narrow interfaces the engine needs from the
// version-control system.
type Collaborator interface {
	CommitLister
	TreeDiffer
	BlobLineDiffer
	BlobSource
}

// Cloner produces a fresh, independent Collaborator handle backed by the
// same underlying repository. The Dispatcher uses it to give every worker
// its own thread-local VCS handle and resource cache.
type Cloner interface {
	Clone() (Collaborator, error)
}

// ResourceCacheClearer exposes the per-handle interned-content cache the
// resource-discipline section asks to be cleared (but not deallocated)
// after every commit.
type ResourceCacheClearer interface {
	ClearResourceCache()
}
