// Package dispatcher implements ChangeDispatcher: for each sampled commit
// in chronological order, it fans the commit's changes out to a worker
// pool that turns them into Actions for the Aggregator, handling the
// blob/non-blob mode-transition rules and the Rewrite rename+modify pair.
package dispatcher

import (
	"context"
	"sync"

	"github.com/cyraxred/codeage/internal/blame"
	"github.com/cyraxred/codeage/internal/core"
	"github.com/cyraxred/codeage/internal/sampler"
	"github.com/cyraxred/codeage/internal/snapshot"
	"github.com/cyraxred/codeage/internal/vcs"
)

// Dispatcher owns the per-commit worker pool. Each worker gets its own
// vcs.Collaborator handle (via vcs.Cloner, when available) so its resource
// cache is genuinely thread-local.
type Dispatcher struct {
	collaborator vcs.Collaborator
	workers      int
	logger       core.Logger

	// Progress, if set, is called after every commit finishes with the
	// number of commits processed so far and the total commit count.
	Progress func(done, total int)
}

// New creates a Dispatcher. workers <= 0 falls back to 1.
func New(collaborator vcs.Collaborator, workers int, logger core.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Dispatcher{collaborator: collaborator, workers: workers, logger: logger}
}

type job struct {
	change vcs.Change
	cohort blame.CohortKey
	clear  bool
	wg     *sync.WaitGroup
}

// Run iterates samples in order, dispatching changesPerSample[i] to the
// worker pool and sending the resulting Actions (plus SetCommitId and
// FinishCommit bracketing) to actions. It returns the first worker error,
// aborting after the commit in progress finishes; a commit is never
// cancelled midway.
func (d *Dispatcher) Run(ctx context.Context, samples []sampler.Sample, changesPerSample [][]vcs.Change, actions chan<- snapshot.Action) error {
	jobs := make(chan job)
	errCh := make(chan error, d.workers)

	var workersWG sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		handle, err := d.workerHandle()
		if err != nil {
			return core.NewVcsError(err)
		}
		workersWG.Add(1)
		go func(handle vcs.Collaborator) {
			defer workersWG.Done()
			for j := range jobs {
				if j.clear {
					if clearer, ok := handle.(vcs.ResourceCacheClearer); ok {
						clearer.ClearResourceCache()
					}
					j.wg.Done()
					// Hold this worker until every clear job is taken, so
					// each worker receives exactly one of them.
					j.wg.Wait()
					continue
				}
				if err := d.processChange(ctx, handle, j.change, j.cohort, actions); err != nil {
					select {
					case errCh <- err:
					default:
					}
				}
				j.wg.Done()
			}
		}(handle)
	}

	var runErr error
loop:
	for sampleIdx, sample := range samples {
		select {
		case actions <- snapshot.SetCommitID(snapshot.CommitID(sample.Commit.ID)):
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}

		changes := changesPerSample[sample.Index]
		cohort := blame.CohortKey(sample.Index)

		var commitWG sync.WaitGroup
		commitWG.Add(len(changes))
		for _, ch := range changes {
			jobs <- job{change: ch, cohort: cohort, wg: &commitWG}
		}
		commitWG.Wait()

		select {
		case runErr = <-errCh:
			break loop
		default:
		}

		var clearWG sync.WaitGroup
		clearWG.Add(d.workers)
		for i := 0; i < d.workers; i++ {
			jobs <- job{clear: true, wg: &clearWG}
		}
		clearWG.Wait()

		actions <- snapshot.FinishCommit()
		if d.Progress != nil {
			d.Progress(sampleIdx+1, len(samples))
		}
	}

	close(jobs)
	workersWG.Wait()

	if runErr == nil {
		select {
		case runErr = <-errCh:
		default:
		}
	}
	return runErr
}

func (d *Dispatcher) workerHandle() (vcs.Collaborator, error) {
	if cloner, ok := d.collaborator.(vcs.Cloner); ok {
		return cloner.Clone()
	}
	return d.collaborator, nil
}

// processChange translates one Change into Actions, applying the
// blob/non-blob mode-transition rules and the Rewrite rename+maybe-modify
// sequencing.
func (d *Dispatcher) processChange(ctx context.Context, handle vcs.Collaborator, change vcs.Change, cohort blame.CohortKey, actions chan<- snapshot.Action) error {
	switch change.Kind {
	case vcs.ChangeAddition:
		return d.emitAddition(ctx, handle, change.Path, change.NewBlobID, cohort, actions)

	case vcs.ChangeDeletion:
		actions <- snapshot.DeleteFile(change.Path)
		return nil

	case vcs.ChangeModification:
		return d.applyModeTransition(ctx, handle, change, cohort, actions)

	case vcs.ChangeRewrite:
		actions <- snapshot.RenameFile(change.OldPath, change.Path)
		if change.OldBlobID == change.NewBlobID {
			return nil
		}
		return d.applyModeTransition(ctx, handle, change, cohort, actions)
	}
	return nil
}

// applyModeTransition handles a Modification or Rewrite whose entry mode
// may have flipped:
// non-blob->blob is an Addition, blob->non-blob is a Deletion, non-blob->
// non-blob is dropped, and blob->blob proceeds to a line diff.
func (d *Dispatcher) applyModeTransition(ctx context.Context, handle vcs.Collaborator, change vcs.Change, cohort blame.CohortKey, actions chan<- snapshot.Action) error {
	prevBlob := change.OldMode == vcs.ModeBlob
	newBlob := change.NewMode == vcs.ModeBlob

	switch {
	case !prevBlob && newBlob:
		return d.emitAddition(ctx, handle, change.Path, change.NewBlobID, cohort, actions)
	case prevBlob && !newBlob:
		actions <- snapshot.DeleteFile(change.Path)
		return nil
	case !prevBlob && !newBlob:
		return nil
	default:
		hunks, err := handle.DiffLines(ctx, change.Path, change.OldBlobID, change.NewBlobID)
		if err != nil {
			return core.NewVcsError(err)
		}
		diffs := make([]blame.LineDiff, len(hunks))
		for i, h := range hunks {
			diffs[i] = blame.LineDiff{
				DeleteStart: h.OldStart, DeleteEnd: h.OldEnd,
				InsertStart: h.NewStart, InsertEnd: h.NewEnd,
				Cohort: cohort,
			}
		}
		actions <- snapshot.ModifyFile(change.Path, diffs)
		return nil
	}
}

func (d *Dispatcher) emitAddition(ctx context.Context, handle vcs.Collaborator, path, blobID string, cohort blame.CohortKey, actions chan<- snapshot.Action) error {
	total, err := handle.CountLines(ctx, blobID)
	if err != nil {
		return core.NewVcsError(err)
	}
	actions <- snapshot.AddFile(path, total, cohort)
	return nil
}
