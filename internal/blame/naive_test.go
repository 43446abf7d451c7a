package blame

// naiveBlame is the trivially-correct reference model: every line's
// cohort stored explicitly, in order. Used only by
// tests to check the compact FileBlame against a trivially-correct model.
type naiveBlame struct {
	lines []CohortKey
}

func newNaiveBlame(total LineNumber, cohort CohortKey) naiveBlame {
	lines := make([]CohortKey, total)
	for i := range lines {
		lines[i] = cohort
	}
	return naiveBlame{lines: lines}
}

func (n naiveBlame) apply(diffs []LineDiff) naiveBlame {
	if len(diffs) == 0 {
		return n
	}
	sorted := make([]LineDiff, len(diffs))
	copy(sorted, diffs)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].DeleteStart > sorted[j].DeleteStart; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	out := make([]CohortKey, 0, len(n.lines))
	cursor := LineNumber(0)
	for _, d := range sorted {
		out = append(out, n.lines[cursor:d.DeleteStart]...)
		for i := int64(0); i < d.insertLen(); i++ {
			out = append(out, d.Cohort)
		}
		cursor = d.DeleteEnd
	}
	out = append(out, n.lines[cursor:]...)
	return naiveBlame{lines: out}
}

func (n naiveBlame) cohortStats() map[CohortKey]int64 {
	stats := make(map[CohortKey]int64)
	for _, c := range n.lines {
		stats[c]++
	}
	return stats
}
