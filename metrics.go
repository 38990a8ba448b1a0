package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cs-au-dk/restruct/utils"
)

// report prints the outcome of a run to w. With metrics, every procedure gets
// a row with its structuring statistics. Failures are always listed.
func report(w io.Writer, results []result, metrics bool) {
	if len(results) == 0 {
		return
	}

	if metrics {
		fmt.Fprintln(w, "================ Results =====================")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Procedure\tOutcome\tBlocks\tLoops\tDepth\tJoins\tDuplicated\tNodes\tTime\t")
		for _, r := range results {
			s := r.stats
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t\n",
				utils.NameColor(r.proc.Name), colorOutcome(r.outcome),
				s.Blocks, s.Loops, s.MaxDepth, s.Joins, s.Duplicated, s.Nodes,
				r.time.Round(time.Microsecond))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	counts := map[string]int{}
	var failures []result
	for _, r := range results {
		counts[r.outcome]++
		if r.failed() {
			failures = append(failures, r)
		}
	}

	if len(failures) > 0 {
		fmt.Fprintln(w, utils.ErrorColor("Failures:"))
		for _, r := range failures {
			fmt.Fprintf(w, "  %s: %s\n", utils.NameColor(r.proc.Name), r.err)
		}
		fmt.Fprintln(w)
	}

	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	summary := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		summary = append(summary, fmt.Sprintf("%s %d", colorOutcome(o), counts[o]))
	}
	fmt.Fprintf(w, "%s: %s\n", utils.Plural(len(results), "procedure"), strings.Join(summary, ", "))
}

func colorOutcome(o string) string {
	if o == OUTCOME_STRUCTURED {
		return utils.OkColor(o)
	}
	return utils.ErrorColor(o)
}

// exitCode is non-zero if any procedure failed.
func exitCode(results []result) int {
	for _, r := range results {
		if r.failed() {
			return 1
		}
	}
	return 0
}
