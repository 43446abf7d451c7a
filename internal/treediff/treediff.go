// Package treediff implements TreeDiffStage: the embarrassingly parallel
// map from sample index to the path-level changes between that sample and
// its predecessor.
package treediff

import (
	"context"

	"github.com/Jeffail/tunny"

	"github.com/cyraxred/codeage/internal/sampler"
	"github.com/cyraxred/codeage/internal/vcs"
)

// Stage computes, for every sample, the Changes against the previous
// sample (an empty tree for sample 0), using a worker pool since each
// sample's diff depends only on immutable tree bytes.
type Stage struct {
	differ  vcs.TreeDiffer
	workers int
}

// New creates a Stage with the given worker-pool size. workers <= 0 falls
// back to 1.
func New(differ vcs.TreeDiffer, workers int) *Stage {
	if workers <= 0 {
		workers = 1
	}
	return &Stage{differ: differ, workers: workers}
}

type job struct {
	ctx              context.Context
	oldTree, newTree string
}

type jobResult struct {
	changes []vcs.Change
	err     error
}

// diffWorker holds one pool worker's thread-local differ handle, so each
// worker's resource cache stays private to it.
type diffWorker struct {
	differ vcs.TreeDiffer
}

func (w *diffWorker) Process(payload interface{}) interface{} {
	j := payload.(job)
	changes, err := w.differ.Diff(j.ctx, j.oldTree, j.newTree)
	return jobResult{changes: changes, err: err}
}

func (w *diffWorker) BlockUntilReady() {}

func (w *diffWorker) Interrupt() {}

func (w *diffWorker) Terminate() {}

func (s *Stage) workerDiffer() vcs.TreeDiffer {
	if cloner, ok := s.differ.(vcs.Cloner); ok {
		if handle, err := cloner.Clone(); err == nil {
			return handle
		}
	}
	return s.differ
}

// Run computes the per-sample change lists, indexed identically to
// samples.
func (s *Stage) Run(ctx context.Context, samples []sampler.Sample) ([][]vcs.Change, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	pool := tunny.New(s.workers, func() tunny.Worker {
		return &diffWorker{differ: s.workerDiffer()}
	})
	defer pool.Close()

	results := make([][]vcs.Change, len(samples))
	errs := make([]error, len(samples))

	done := make(chan int, len(samples))
	for i := range samples {
		i := i
		var oldTree string
		if i > 0 {
			oldTree = samples[i-1].Commit.TreeID
		}
		go func() {
			raw := pool.Process(job{ctx: ctx, oldTree: oldTree, newTree: samples[i].Commit.TreeID})
			r := raw.(jobResult)
			results[i] = r.changes
			errs[i] = r.err
			done <- i
		}()
	}
	for range samples {
		<-done
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
