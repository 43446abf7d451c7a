package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh/terminal"
	progress "gopkg.in/cheggaaa/pb.v1"

	codeage "github.com/cyraxred/codeage"
	"github.com/cyraxred/codeage/internal/filetype"
	"github.com/cyraxred/codeage/internal/sampler"
	"github.com/cyraxred/codeage/internal/vcs"
)

func parseGranularity(value string) (sampler.Granularity, error) {
	switch value {
	case "weekly":
		return sampler.Weekly, nil
	case "monthly":
		return sampler.Monthly, nil
	case "yearly":
		return sampler.Yearly, nil
	}
	return 0, fmt.Errorf("unknown granularity %q, expected weekly, monthly or yearly", value)
}

func parseTimeFlag(flags *pflag.FlagSet, name string) (*time.Time, error) {
	value, err := flags.GetString(name)
	if err != nil {
		panic(err)
	}
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codeage /path/to/repo",
	Short: "Reconstruct the code age profile of a Git repository.",
	Long: `Codeage samples a repository's first-parent history at a regular granularity and
reconstructs, for every sampled commit, how many of the currently present lines were
introduced by each previously sampled commit. The output is a time series suitable for
a stacked-area plot of repository composition over time.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		getBool := func(name string) bool {
			value, err := flags.GetBool(name)
			if err != nil {
				panic(err)
			}
			return value
		}
		getString := func(name string) string {
			value, err := flags.GetString(name)
			if err != nil {
				panic(err)
			}
			return value
		}
		getInt := func(name string) int {
			value, err := flags.GetInt(name)
			if err != nil {
				panic(err)
			}
			return value
		}
		disableStatus := getBool("quiet")

		uri, err := homedir.Expand(args[0])
		if err != nil {
			log.Fatalf("failed to expand %s: %v", args[0], err)
		}
		granularity, err := parseGranularity(getString("granularity"))
		if err != nil {
			log.Fatal(err)
		}
		since, err := parseTimeFlag(flags, "since")
		if err != nil {
			log.Fatalf("failed to parse --since: %v", err)
		}
		until, err := parseTimeFlag(flags, "until")
		if err != nil {
			log.Fatalf("failed to parse --until: %v", err)
		}
		languages, err := flags.GetStringSlice("languages")
		if err != nil {
			panic(err)
		}
		excludeGlobs, err := flags.GetStringSlice("exclude")
		if err != nil {
			panic(err)
		}

		collaborator, err := vcs.Open(uri)
		if err != nil {
			log.Fatalf("failed to open %s: %v", uri, err)
		}

		cfg := codeage.Config{
			Granularity:     granularity,
			Since:           since,
			Until:           until,
			TreeDiffWorkers: getInt("tree-diff-workers"),
			DispatchWorkers: getInt("dispatch-workers"),
		}
		allowed := filetype.LanguageAllowlist(languages...)
		excludedGlob := filetype.Glob(excludeGlobs...)
		cfg.PathAllowed = func(path string) bool {
			if filetype.DefaultExcludes(path) || excludedGlob(path) {
				return false
			}
			if len(languages) == 0 {
				return true
			}
			return allowed(path)
		}

		var bar *progress.ProgressBar
		if !disableStatus {
			cfg.OnProgress = func(done, total int) {
				if bar == nil {
					bar = progress.New(total)
					bar.Callback = func(msg string) {
						os.Stderr.WriteString("\033[2K\r" + msg)
					}
					bar.NotPrint = true
					bar.ShowPercent = false
					bar.ShowSpeed = false
					bar.SetMaxWidth(80).Start()
				}
				bar.Set(done)
			}
		}

		output, err := codeage.Run(context.Background(), collaborator, cfg)
		if err != nil {
			log.Fatalf("failed to run the pipeline: %v", err)
		}
		if bar != nil {
			bar.Finish()
		}
		if !disableStatus {
			fmt.Fprint(os.Stderr, "\033[2K\r")
		}
		printResults(uri, output)
	},
}

func printResults(uri string, output *codeage.Output) {
	fmt.Println("codeage:")
	fmt.Println("  repository:", uri)
	fmt.Println("  samples:", len(output.Timestamps))
	fmt.Println("ts:")
	for _, ts := range output.Timestamps {
		fmt.Printf("  - %q\n", ts)
	}
	fmt.Println("y:")
	for k, label := range output.Labels {
		fmt.Printf("  %q:", label)
		for _, v := range output.Y[k] {
			fmt.Printf(" %d", v)
		}
		fmt.Println()
	}
}

func init() {
	rootFlags := rootCmd.Flags()
	rootFlags.String("granularity", "monthly",
		"Sampling granularity: one representative commit per week, month or year.")
	rootFlags.String("since", "", "Ignore commits older than this date (YYYY-MM-DD).")
	rootFlags.String("until", "", "Ignore commits newer than this date (YYYY-MM-DD).")
	rootFlags.StringSlice("languages", nil,
		"Only count files detected as one of these programming languages. "+
			"Empty means every file passes.")
	rootFlags.StringSlice("exclude", nil,
		"Skip files whose name matches any of these shell globs.")
	rootFlags.Int("tree-diff-workers", runtime.NumCPU(),
		"Number of parallel workers computing tree diffs between samples.")
	rootFlags.Int("dispatch-workers", runtime.NumCPU(),
		"Number of parallel workers translating a commit's changes into blame mutations.")
	rootFlags.Bool("quiet", !terminal.IsTerminal(int(os.Stdin.Fd())),
		"Do not print status updates to stderr.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
