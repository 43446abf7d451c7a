// Package sampler implements CommitSampler: selecting one representative
// commit per time bucket (week/month/year) from a repository's first-parent
// history.
package sampler

import (
	"context"
	"sort"
	"time"

	"github.com/cyraxred/codeage/internal/vcs"
)

// Granularity is the bucketing unit used to pick sample commits.
type Granularity int

const (
	Weekly Granularity = iota
	Monthly
	Yearly
)

// Options configures ListSamples. Since and Until are optional wall-time
// bounds: commits older than Since terminate the backward walk; commits
// newer than Until are skipped.
type Options struct {
	Granularity Granularity
	Since       *time.Time
	Until       *time.Time
}

// Sample is one selected commit: the most recent commit encountered, while
// walking backwards, whose time falls in its bucket.
type Sample struct {
	Index  int
	Commit vcs.CommitInfo
}

// bucketKey buckets a time per the chosen granularity: Weekly uses the
// ISO date of the Sunday starting that week; Monthly uses "YYYY-MM";
// Yearly uses "YYYY".
func bucketKey(g Granularity, t time.Time) string {
	switch g {
	case Weekly:
		offset := int(t.Weekday())
		sunday := t.AddDate(0, 0, -offset)
		return sunday.Format("2006-01-02")
	case Monthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006")
	}
}

// ListSamples walks lister's first-parent history backwards in time,
// buckets each commit by opts.Granularity, keeps the first (most recent)
// commit seen per bucket, and returns the selection sorted ascending by
// time.
func ListSamples(ctx context.Context, lister vcs.CommitLister, opts Options) ([]Sample, error) {
	history, err := lister.FirstParentHistory(ctx)
	if err != nil {
		return nil, err
	}

	type bucketed struct {
		key    string
		commit vcs.CommitInfo
	}
	var selected []bucketed
	seen := make(map[string]bool)

	for _, c := range history {
		if opts.Since != nil && c.Time.Before(*opts.Since) {
			break
		}
		if opts.Until != nil && c.Time.After(*opts.Until) {
			continue
		}
		key := bucketKey(opts.Granularity, c.Time)
		if seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, bucketed{key: key, commit: c})
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].commit.Time.Before(selected[j].commit.Time)
	})

	out := make([]Sample, len(selected))
	for i, b := range selected {
		out[i] = Sample{Index: i, Commit: b.commit}
	}
	return out, nil
}
