// Package blame implements the incremental per-file blame engine: a compact
// run-length encoding of which cohort introduced every line of a file, and
// the single batched operation that advances it across a commit's diff.
package blame

import (
	"sort"

	"github.com/cyraxred/codeage/internal/core"
)

// LineNumber is a 0-based line index into a file.
type LineNumber uint32

// CohortKey identifies the sample commit that introduced a line. In
// practice it is the index of that commit in the chronological sample list.
type CohortKey int

// changePoint is one entry of the run-length encoding: the cohort
// attributed to every line starting at Start, up to the next change point
// (or TotalLines for the last entry).
type changePoint struct {
	start  LineNumber
	cohort CohortKey
}

// FileBlame is a value type: every method that "mutates" a FileBlame
// returns a new one. It is owned by exactly one RepoSnapshot entry at a
// time and never shared across goroutines.
type FileBlame struct {
	totalLines LineNumber
	points     []changePoint
}

// Range is one (start, end) span of lines sharing a single cohort, as
// yielded by Ranges().
type Range struct {
	Start, End LineNumber
	Cohort     CohortKey
}

// LineDiff is one hunk of a batch passed to ApplyLineDiffs: delete the
// pre-diff lines [DeleteStart, DeleteEnd), insert (InsertEnd - InsertStart)
// new lines attributed to Cohort at that position. The literal values of
// InsertStart/InsertEnd beyond their difference are not consulted.
type LineDiff struct {
	DeleteStart, DeleteEnd LineNumber
	InsertStart, InsertEnd LineNumber
	Cohort                 CohortKey
}

func (d LineDiff) deleteLen() int64 { return int64(d.DeleteEnd) - int64(d.DeleteStart) }
func (d LineDiff) insertLen() int64 { return int64(d.InsertEnd) - int64(d.InsertStart) }

// New builds a fresh FileBlame of totalLines lines, all attributed to
// cohort.
func New(totalLines LineNumber, cohort CohortKey) FileBlame {
	if totalLines == 0 {
		return FileBlame{}
	}
	return FileBlame{
		totalLines: totalLines,
		points:     []changePoint{{start: 0, cohort: cohort}},
	}
}

// TotalLines returns the current line count.
func (fb FileBlame) TotalLines() LineNumber { return fb.totalLines }

// RangeCount returns the number of change points (run-length entries).
func (fb FileBlame) RangeCount() int { return len(fb.points) }

// Ranges returns the (start, end, cohort) triples in increasing start
// order.
func (fb FileBlame) Ranges() []Range {
	if len(fb.points) == 0 {
		return nil
	}
	out := make([]Range, len(fb.points))
	for i, p := range fb.points {
		end := fb.totalLines
		if i+1 < len(fb.points) {
			end = fb.points[i+1].start
		}
		out[i] = Range{Start: p.start, End: end, Cohort: p.cohort}
	}
	return out
}

// CohortStats returns, for every cohort present in this file, the number
// of lines currently attributed to it.
func (fb FileBlame) CohortStats() map[CohortKey]int64 {
	stats := make(map[CohortKey]int64, len(fb.points))
	for _, r := range fb.Ranges() {
		stats[r.Cohort] += int64(r.End) - int64(r.Start)
	}
	return stats
}

// predecessorCohort returns the cohort attributed to line `at` in fb
// (the pre-diff file), via a predecessor search over its change points.
func (fb FileBlame) predecessorCohort(at LineNumber) CohortKey {
	idx := sort.Search(len(fb.points), func(i int) bool { return fb.points[i].start > at }) - 1
	if idx < 0 {
		idx = 0
	}
	return fb.points[idx].cohort
}

// ApplyLineDiffs returns a new FileBlame reflecting the given batch of
// line-level diffs applied in a single forward sweep. diffs need not be
// pre-sorted by DeleteStart; sorting is part of the operation. Diffs must
// have non-overlapping delete ranges — callers violating this get
// unspecified (not undefined) results.
func (fb FileBlame) ApplyLineDiffs(diffs []LineDiff) FileBlame {
	if len(diffs) == 0 {
		return fb
	}

	sorted := make([]LineDiff, len(diffs))
	copy(sorted, diffs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DeleteStart < sorted[j].DeleteStart })

	result := make([]changePoint, 0, len(fb.points)+len(sorted)*2)
	appendPoint := func(start LineNumber, cohort CohortKey) {
		n := len(result)
		if n > 0 && result[n-1].start == start {
			// The previous entry's run is empty (a resume point directly
			// followed by the next diff); the new entry supersedes it.
			result[n-1].cohort = cohort
			return
		}
		if n > 0 && result[n-1].cohort == cohort {
			return
		}
		result = append(result, changePoint{start: start, cohort: cohort})
	}

	oldPoints := fb.points
	pi := 0
	offset := int64(0)

	for _, d := range sorted {
		for pi < len(oldPoints) && oldPoints[pi].start < d.DeleteStart {
			appendPoint(LineNumber(int64(oldPoints[pi].start)+offset), oldPoints[pi].cohort)
			pi++
		}

		if il := d.insertLen(); il > 0 {
			appendPoint(LineNumber(int64(d.DeleteStart)+offset), d.Cohort)
		}

		for pi < len(oldPoints) && oldPoints[pi].start < d.DeleteEnd {
			pi++
		}

		if int64(d.DeleteEnd) < int64(fb.totalLines) {
			resumeCohort := fb.predecessorCohort(d.DeleteEnd)
			resumeStart := LineNumber(int64(d.DeleteStart) + d.insertLen() + offset)
			appendPoint(resumeStart, resumeCohort)
		}

		offset += d.insertLen() - d.deleteLen()
	}

	for pi < len(oldPoints) {
		appendPoint(LineNumber(int64(oldPoints[pi].start)+offset), oldPoints[pi].cohort)
		pi++
	}

	newTotal := LineNumber(int64(fb.totalLines) + offset)

	cleaned := make([]changePoint, 0, len(result))
	for _, p := range result {
		if p.start >= newTotal {
			continue
		}
		if n := len(cleaned); n > 0 && cleaned[n-1].cohort == p.cohort {
			continue
		}
		cleaned = append(cleaned, p)
	}
	if newTotal == 0 {
		cleaned = nil
	}

	return FileBlame{totalLines: newTotal, points: cleaned}
}

// Validate checks invariants 1, 2 and 3 (first point at line 0, strictly
// increasing starts, no two adjacent points sharing a cohort) and the
// no-entry-beyond-total_lines rule.
func (fb FileBlame) Validate() error {
	if fb.totalLines == 0 {
		if len(fb.points) != 0 {
			return &core.DiffInvariantViolation{Reason: "empty file has change points"}
		}
		return nil
	}
	if len(fb.points) == 0 || fb.points[0].start != 0 {
		return &core.DiffInvariantViolation{Reason: "first change point is not at line 0"}
	}
	for i, p := range fb.points {
		if p.start >= fb.totalLines {
			return &core.DiffInvariantViolation{Reason: "change point at or beyond total_lines"}
		}
		if i > 0 && fb.points[i-1].start >= p.start {
			return &core.DiffInvariantViolation{Reason: "change points not strictly increasing"}
		}
		if i > 0 && fb.points[i-1].cohort == p.cohort {
			return &core.DiffInvariantViolation{Reason: "adjacent change points share a cohort"}
		}
	}
	return nil
}
