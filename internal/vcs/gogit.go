package vcs

import (
	"bytes"
	"context"
	"io"
	"unicode/utf8"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/cyraxred/codeage/internal/blame"
)

// GoGit bundles the go-git-backed implementations of CommitLister,
// TreeDiffer, BlobLineDiffer and BlobSource against a single opened
// repository, plus a small interned-blob-bytes cache. Each worker gets its
// own GoGit via Clone so the cache is genuinely thread-local; ClearResourceCache
// empties it (without discarding the underlying map) after every commit.
type GoGit struct {
	repo  *git.Repository
	cache map[string][]byte
}

// Open opens the repository rooted at path (a plain, non-bare working
// copy).
func Open(path string) (*GoGit, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return &GoGit{repo: repo, cache: make(map[string][]byte)}, nil
}

// Clone returns a fresh handle bound to the same on-disk repository with
// its own, empty blob cache, suitable as a worker's thread-local handle.
func (g *GoGit) Clone() (Collaborator, error) {
	return &GoGit{repo: g.repo, cache: make(map[string][]byte)}, nil
}

// ClearResourceCache empties the interned blob cache while keeping the map
// allocated, per the "clear every commit" resource discipline.
func (g *GoGit) ClearResourceCache() {
	for k := range g.cache {
		delete(g.cache, k)
	}
}

// FirstParentHistory implements CommitLister by walking HEAD's
// first-parent chain backwards.
func (g *GoGit) FirstParentHistory(ctx context.Context) ([]CommitInfo, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, err
	}
	cur, err := g.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, err
	}

	var history []CommitInfo
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		history = append(history, CommitInfo{
			ID:     cur.Hash.String(),
			Time:   cur.Committer.When,
			TreeID: cur.TreeHash.String(),
		})
		if cur.NumParents() == 0 {
			break
		}
		parent, err := cur.Parent(0)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return history, nil
}

// Diff implements TreeDiffer using go-git's tree diff with rename
// detection. A blank oldTreeID diffs against an empty tree.
func (g *GoGit) Diff(ctx context.Context, oldTreeID, newTreeID string) ([]Change, error) {
	newTree, err := g.repo.TreeObject(plumbing.NewHash(newTreeID))
	if err != nil {
		return nil, err
	}

	var oldTree *object.Tree
	if oldTreeID != "" {
		oldTree, err = g.repo.TreeObject(plumbing.NewHash(oldTreeID))
		if err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, oldTree, newTree, &object.DiffTreeOptions{
		DetectRenames: true,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		out = append(out, convertChange(c))
	}
	return out, nil
}

func convertChange(c *object.Change) Change {
	hasFrom := c.From.Name != ""
	hasTo := c.To.Name != ""

	switch {
	case !hasFrom && hasTo:
		return Change{
			Kind:      ChangeAddition,
			Path:      c.To.Name,
			NewMode:   modeOf(c.To.TreeEntry.Mode),
			NewBlobID: c.To.TreeEntry.Hash.String(),
		}
	case hasFrom && !hasTo:
		return Change{
			Kind:      ChangeDeletion,
			Path:      c.From.Name,
			OldMode:   modeOf(c.From.TreeEntry.Mode),
			OldBlobID: c.From.TreeEntry.Hash.String(),
		}
	case hasFrom && hasTo && c.From.Name != c.To.Name:
		return Change{
			Kind:      ChangeRewrite,
			OldPath:   c.From.Name,
			Path:      c.To.Name,
			OldMode:   modeOf(c.From.TreeEntry.Mode),
			NewMode:   modeOf(c.To.TreeEntry.Mode),
			OldBlobID: c.From.TreeEntry.Hash.String(),
			NewBlobID: c.To.TreeEntry.Hash.String(),
		}
	default:
		return Change{
			Kind:      ChangeModification,
			Path:      c.To.Name,
			OldMode:   modeOf(c.From.TreeEntry.Mode),
			NewMode:   modeOf(c.To.TreeEntry.Mode),
			OldBlobID: c.From.TreeEntry.Hash.String(),
			NewBlobID: c.To.TreeEntry.Hash.String(),
		}
	}
}

func modeOf(m filemode.FileMode) EntryMode {
	if m == filemode.Regular || m == filemode.Executable {
		return ModeBlob
	}
	return ModeNonBlob
}

// CountLines implements BlobSource using the "newline terminators, plus
// one for a non-empty trailing fragment" convention.
func (g *GoGit) CountLines(ctx context.Context, blobID string) (blame.LineNumber, error) {
	data, err := g.blobBytes(blobID)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	lines := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		lines++
	}
	return blame.LineNumber(lines), nil
}

func (g *GoGit) blobBytes(blobID string) ([]byte, error) {
	if data, cached := g.cache[blobID]; cached {
		return data, nil
	}
	blob, err := g.repo.BlobObject(plumbing.NewHash(blobID))
	if err != nil {
		return nil, err
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		g.cache[blobID] = data
	}
	return data, nil
}

// DiffLines implements BlobLineDiffer via sergi/go-diff's line-granularity
// trick: intern every line as a rune, run Myers on the rune streams, then
// walk the resulting ops translating them into (old_range, new_range)
// hunks.
func (g *GoGit) DiffLines(ctx context.Context, path string, oldBlobID, newBlobID string) ([]LineHunk, error) {
	oldData, err := g.blobBytes(oldBlobID)
	if err != nil {
		return nil, err
	}
	newData, err := g.blobBytes(newBlobID)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	src, dst, _ := dmp.DiffLinesToRunes(string(oldData), string(newData))
	diffs := dmp.DiffMainRunes(src, dst, false)

	var hunks []LineHunk
	var oldPos, newPos blame.LineNumber
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		n := blame.LineNumber(utf8.RuneCountInString(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldPos += n
			newPos += n
		case diffmatchpatch.DiffDelete:
			oldStart := oldPos
			oldPos += n
			newStart := newPos
			newEnd := newPos
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				i++
				insN := blame.LineNumber(utf8.RuneCountInString(diffs[i].Text))
				newEnd = newPos + insN
				newPos += insN
			}
			hunks = append(hunks, LineHunk{OldStart: oldStart, OldEnd: oldPos, NewStart: newStart, NewEnd: newEnd})
		case diffmatchpatch.DiffInsert:
			newStart := newPos
			newPos += n
			hunks = append(hunks, LineHunk{OldStart: oldPos, OldEnd: oldPos, NewStart: newStart, NewEnd: newPos})
		}
	}
	return hunks, nil
}
