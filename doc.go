/*
Package codeage reconstructs the "code age" profile of a Git repository:
for a periodic sampling of its first-parent history, how many of the lines
present at each sampled commit were introduced by each previously sampled
commit. The result is a time series suited to a stacked-area plot of
repository composition over time.

Run is the entry point. It composes the commit sampler, the parallel tree
diff stage, the change dispatcher and the single-writer aggregator, and
assembles the final label/timestamp/matrix artifact:

	collaborator, err := vcs.Open("/path/to/repo")
	// ... handle err ...
	output, err := codeage.Run(context.Background(), collaborator, codeage.Config{
		Granularity: sampler.Monthly,
		OnProgress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "%d / %d\r", done, total)
		},
	})
	// output.Y[k][i] is the line count of cohort label k at sample i.

The engine is approximate by design: it follows only first parents,
attributes every line to the sampling cohort that introduced it, and does
not track copies.
*/
package codeage
