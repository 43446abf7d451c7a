// Package aggregator implements the single-writer consumer of the Action
// channel: it owns the RepoSnapshot, applies every mutation in order, and
// emits a cohort-totals vector on each FinishCommit.
package aggregator

import (
	"github.com/cyraxred/codeage/internal/core"
	"github.com/cyraxred/codeage/internal/snapshot"
)

// Result is one commit's worth of cohort totals, produced on FinishCommit.
type Result struct {
	CommitID snapshot.CommitID
	Totals   []snapshot.CohortTotal
}

// Aggregator owns a Snapshot and drains an Action channel into a results
// slice. It must run on a single goroutine; this single-writer discipline
// is the engine's entire consistency guarantee.
type Aggregator struct {
	snap    *snapshot.Snapshot
	logger  core.Logger
	results []Result
}

// New creates an Aggregator whose Snapshot starts at initialCommit.
func New(initialCommit snapshot.CommitID, logger core.Logger) *Aggregator {
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Aggregator{
		snap:   snapshot.New(initialCommit),
		logger: logger,
	}
}

// Run consumes actions until the channel closes, applying each to the
// Snapshot and recording a Result on every FinishCommit. It returns the
// accumulated results when the channel closes, or the first
// InputContractViolation it encounters (the consume loop then stops: a
// contract violation indicates upstream desynchronization and there is no
// sound way to keep going).
func (a *Aggregator) Run(actions <-chan snapshot.Action) ([]Result, error) {
	for action := range actions {
		if action.Kind == snapshot.ActionFinishCommit {
			a.results = append(a.results, Result{
				CommitID: a.snap.CommitID(),
				Totals:   a.snap.SnapshotTotals(),
			})
			continue
		}
		if err := action.Apply(a.snap); err != nil {
			a.logger.Errorf("aggregator: %v", err)
			return a.results, err
		}
	}
	return a.results, nil
}
