package codeage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cyraxred/codeage/internal/aggregator"
	"github.com/cyraxred/codeage/internal/blame"
	"github.com/cyraxred/codeage/internal/core"
	"github.com/cyraxred/codeage/internal/dispatcher"
	"github.com/cyraxred/codeage/internal/sampler"
	"github.com/cyraxred/codeage/internal/snapshot"
	"github.com/cyraxred/codeage/internal/treediff"
	"github.com/cyraxred/codeage/internal/vcs"
)

// Config controls one Driver run.
type Config struct {
	Granularity sampler.Granularity
	Since       *time.Time
	Until       *time.Time

	// PathAllowed, if set, is consulted for every changed path; changes
	// whose path it rejects are dropped before reaching the Dispatcher.
	// This is the pluggable filetype-allowlist hook.
	PathAllowed func(path string) bool

	TreeDiffWorkers int
	DispatchWorkers int

	Logger core.Logger

	// OnProgress, if set, is called after every sampled commit finishes
	// processing.
	OnProgress func(done, total int)
}

// Run executes the full pipeline: CommitSampler -> TreeDiffStage ->
// ChangeDispatcher -> Aggregator, and assembles the Output artifact.
func Run(ctx context.Context, collaborator vcs.Collaborator, cfg Config) (*Output, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	samples, err := sampler.ListSamples(ctx, collaborator, sampler.Options{
		Granularity: cfg.Granularity,
		Since:       cfg.Since,
		Until:       cfg.Until,
	})
	if err != nil {
		return nil, core.NewVcsError(err)
	}
	if len(samples) == 0 {
		return &Output{}, nil
	}

	treeDiffWorkers := cfg.TreeDiffWorkers
	if treeDiffWorkers <= 0 {
		treeDiffWorkers = 4
	}
	stage := treediff.New(collaborator, treeDiffWorkers)
	changesPerSample, err := stage.Run(ctx, samples)
	if err != nil {
		return nil, core.NewVcsError(err)
	}

	if cfg.PathAllowed != nil {
		filterChanges(changesPerSample, cfg.PathAllowed)
	}
	filterNonBlobChanges(changesPerSample)

	dispatchWorkers := cfg.DispatchWorkers
	if dispatchWorkers <= 0 {
		dispatchWorkers = 4
	}
	disp := dispatcher.New(collaborator, dispatchWorkers, logger)
	disp.Progress = cfg.OnProgress

	actionsCh := make(chan snapshot.Action, 4096)
	agg := aggregator.New(snapshot.CommitID(samples[0].Commit.ID), logger)

	resultsCh := make(chan struct {
		results []aggregator.Result
		err     error
	}, 1)
	go func() {
		results, err := agg.Run(actionsCh)
		// If the aggregator bailed out on a contract violation, keep
		// draining so the dispatcher's sends never block on a consumer
		// that has gone away.
		for range actionsCh {
		}
		resultsCh <- struct {
			results []aggregator.Result
			err     error
		}{results, err}
	}()

	dispatchErr := disp.Run(ctx, samples, changesPerSample, actionsCh)
	close(actionsCh)
	aggOutcome := <-resultsCh

	if dispatchErr != nil {
		return nil, dispatchErr
	}
	if aggOutcome.err != nil {
		return nil, aggOutcome.err
	}

	return assembleOutput(samples, aggOutcome.results), nil
}

func filterChanges(changesPerSample [][]vcs.Change, allowed func(string) bool) {
	for i, changes := range changesPerSample {
		kept := changes[:0]
		for _, c := range changes {
			if allowed(c.Path) {
				kept = append(kept, c)
			}
		}
		changesPerSample[i] = kept
	}
}

// filterNonBlobChanges drops Changes where neither side is a blob;
// directory-only and submodule-only entries carry no lines to attribute.
func filterNonBlobChanges(changesPerSample [][]vcs.Change) {
	for i, changes := range changesPerSample {
		kept := changes[:0]
		for _, c := range changes {
			if c.OldMode == vcs.ModeBlob || c.NewMode == vcs.ModeBlob {
				kept = append(kept, c)
			}
		}
		changesPerSample[i] = kept
	}
}

// Output is the three-parallel-array artifact: Labels[k] is a human
// cohort label, Timestamps[i] is sample i's formatted time, and Y[k][i] is
// the line count for label k at sample i.
type Output struct {
	Labels     []string
	Timestamps []string
	Y          [][]int64
}

func assembleOutput(samples []sampler.Sample, results []aggregator.Result) *Output {
	sampleYear := func(cohort blame.CohortKey) int {
		idx := int(cohort)
		if idx < 0 || idx >= len(samples) {
			return 0
		}
		return samples[idx].Commit.Time.Year()
	}

	yearSet := map[int]bool{}
	for _, r := range results {
		for _, ct := range r.Totals {
			yearSet[sampleYear(ct.Cohort)] = true
		}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	yearIndex := make(map[int]int, len(years))
	labels := make([]string, len(years))
	for k, y := range years {
		yearIndex[y] = k
		labels[k] = fmt.Sprintf("Code added in %d", y)
	}

	ts := make([]string, len(results))
	yMatrix := make([][]int64, len(years))
	for k := range yMatrix {
		yMatrix[k] = make([]int64, len(results))
	}

	for i, r := range results {
		if i < len(samples) {
			ts[i] = samples[i].Commit.Time.Format("2006-01-02 15:04:05")
		}
		for _, ct := range r.Totals {
			k := yearIndex[sampleYear(ct.Cohort)]
			yMatrix[k][i] += ct.Lines
		}
	}

	return &Output{Labels: labels, Timestamps: ts, Y: yMatrix}
}
