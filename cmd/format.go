package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/urbanopt/internal/evaluator"
	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/runner"
	"github.com/sells-group/urbanopt/internal/scenario"
)

// printer groups large counts with thousands separators.
var printer = message.NewPrinter(language.English)

func formatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// renderFrontier writes the Pareto frontier as an aligned table, best
// weighted objective first.
func renderFrontier(w io.Writer, frontier []*evaluator.ScoredScenario) {
	fmt.Fprintf(w, "Pareto frontier (%d scenarios)\n\n", len(frontier))
	if len(frontier) == 0 {
		fmt.Fprintln(w, "  no feasible scenarios")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINGERPRINT\tOBJECTIVE\tGREEN\tWALK\tMIXED\tENERGY\tCOST")
	for _, s := range frontier {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.1f\t%.3f\t%s\t%s\n",
			s.Fingerprint,
			s.Objective,
			s.Result[metrics.GreenSpace],
			s.Result[metrics.Walkability],
			s.Result[metrics.MixedUse],
			printer.Sprintf("%.0f", s.Result[metrics.Energy]),
			printer.Sprintf("%.0f", s.Result[metrics.InfraCost]),
		)
	}
	tw.Flush()
}

// renderStats writes the run summary below the frontier table.
func renderStats(w io.Writer, stats runner.Stats) {
	fmt.Fprintf(w, "\nRun %s\n", stats.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  enumerated\t%s\n", formatCount(stats.Enumerated))
	fmt.Fprintf(tw, "  feasible\t%s\n", formatCount(stats.Feasible))
	fmt.Fprintf(tw, "  pruned\t%s\n", formatCount(stats.Pruned))
	fmt.Fprintf(tw, "  skipped\t%s\n", formatCount(stats.Skipped))
	fmt.Fprintf(tw, "  frontier\t%d\n", stats.FrontierSize)
	fmt.Fprintf(tw, "  cache hit rate\t%.1f%%\n", stats.Cache.HitRate*100)
	fmt.Fprintf(tw, "  workers\t%d\n", stats.Workers)
	fmt.Fprintf(tw, "  elapsed\t%s\n", stats.Elapsed.Round(time.Millisecond))
	tw.Flush()

	if len(stats.PruneReasons) > 0 {
		reasons := make([]string, 0, len(stats.PruneReasons))
		for reason := range stats.PruneReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		fmt.Fprintln(w, "\nPrune reasons")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, reason := range reasons {
			fmt.Fprintf(tw, "  %s\t%s\n", reason, formatCount(stats.PruneReasons[reason]))
		}
		tw.Flush()
	}
}

// renderSpace writes the dimension summary for the space command.
func renderSpace(w io.Writer, space *scenario.Space, total int64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIMENSION\tKIND\tSAMPLES\tRANGE")
	for _, d := range space.Heights {
		fmt.Fprintf(tw, "%s\theight\t%d\t%.1f to %.1f m\n", d.Name, d.Samples, d.Min, d.Max)
	}
	for _, d := range space.Greens {
		fmt.Fprintf(tw, "%s\tgreen fraction\t%d\t%.2f to %.2f\n", d.Name, d.Samples, d.Min, d.Max)
	}
	for _, d := range space.LandUses {
		fmt.Fprintf(tw, "%s\tland use\t%d\t%v\n", d.Name, len(d.Categories), d.Categories)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal scenarios: %s\n", formatCount(total))
}
