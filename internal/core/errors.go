package core

import "github.com/pkg/errors"

// The four error kinds named by the error handling design: failures reading
// the VCS, contract violations between the Dispatcher and the RepoSnapshot,
// blame invariant violations, and an Aggregator that has gone away.

// VcsError wraps a failure reading trees, blobs, or walking history.
type VcsError struct {
	cause error
}

func NewVcsError(cause error) *VcsError { return &VcsError{cause: cause} }

func (e *VcsError) Error() string { return "vcs error: " + e.cause.Error() }
func (e *VcsError) Unwrap() error { return e.cause }

// InputContractViolation signals that the RepoSnapshot received an Action
// that violates the add/delete/rename/modify path contract: AddFile for a
// path already present, or DeleteFile/RenameFile/ModifyFile for a path that
// isn't. It always indicates a bug upstream (the Dispatcher or the VCS
// differ), never bad repository content.
type InputContractViolation struct {
	Op   string
	Path string
}

func (e *InputContractViolation) Error() string {
	return "input contract violation: " + e.Op + " on " + e.Path
}

// DiffInvariantViolation signals that apply_line_diffs produced a FileBlame
// failing validate().
type DiffInvariantViolation struct {
	Reason string
}

func (e *DiffInvariantViolation) Error() string {
	return "diff invariant violation: " + e.Reason
}

// ErrChannelClosed names the error kind for an Aggregator that has exited
// before the channel was meant to close. No code path in this module returns
// it: the Driver keeps draining the channel after the Aggregator stops.
var ErrChannelClosed = errors.New("aggregator channel closed unexpectedly")

// Wrap is github.com/pkg/errors.Wrap, re-exported so callers only need this
// package for the error-handling conventions used across codeage.
func Wrap(err error, message string) error { return errors.Wrap(err, message) }

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
