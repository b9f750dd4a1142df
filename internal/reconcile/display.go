package reconcile

import (
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	labelWidth = 28
	pathWidth  = 96
)

func title(s string) string {
	return cases.Title(language.English).String(s)
}

// DisplayPlan prints what a run is about to do.
func DisplayPlan(w io.Writer, plan *Plan) {
	fmt.Fprintf(w, "\n%s\n\n", color.Bold.Sprint("=== Reconciliation Plan ==="))
	fmt.Fprintf(w, "%s %s\n", runewidth.FillRight("A:", 3), plan.RootA)
	fmt.Fprintf(w, "%s %s\n\n", runewidth.FillRight("B:", 3), plan.RootB)

	for _, side := range []Side{SideA, SideB} {
		removals := plan.Removals(side)
		var bytes int64
		for _, rec := range removals {
			bytes += rec.Size
		}
		planLine(w, fmt.Sprintf("Remove from %s (duplicates):", side), len(removals), bytes)
	}
	for _, side := range []Side{SideA, SideB} {
		planLine(w, fmt.Sprintf("Copy into %s (missing):", side), len(plan.CopiesInto(side)), plan.BytesInto(side))
	}
	fmt.Fprintln(w)
}

func planLine(w io.Writer, label string, count int, bytes int64) {
	value := fmt.Sprintf("%d files", count)
	if count > 0 {
		value = color.Cyan.Sprintf("%d files (%s)", count, formatBytes(bytes))
	}
	fmt.Fprintf(w, "  %s %s\n", runewidth.FillRight(label, labelWidth), value)
}

// DisplaySummary prints the outcome of a run, listing every failed action.
func DisplaySummary(w io.Writer, result *Result) {
	heading := "=== Reconciliation Summary ==="
	if result.DryRun {
		heading = "=== Reconciliation Summary (dry run) ==="
	}
	fmt.Fprintf(w, "\n%s\n\n", color.Bold.Sprint(heading))
	summaryLine(w, "Run ID:", result.RunID)

	if result.IndexA != nil {
		summaryLine(w, "Indexed A:", fmt.Sprintf("%d files, %d skipped", result.IndexA.FileCount(), result.IndexA.Stats.Skipped))
	}
	if result.IndexB != nil {
		summaryLine(w, "Indexed B:", fmt.Sprintf("%d files, %d skipped", result.IndexB.FileCount(), result.IndexB.Stats.Skipped))
	}

	for _, warning := range result.Warnings {
		summaryLine(w, "Warning:", color.Yellow.Sprint(warning))
	}

	if result.Declined {
		summaryLine(w, "Status:", color.Yellow.Sprint("declined, no changes made"))
		return
	}
	if result.Backup != nil {
		summaryLine(w, "Backup:", fmt.Sprintf("%d files (%s)", result.Backup.Files, formatBytes(result.Backup.Bytes)))
	}
	if result.Log == nil {
		return
	}

	s := result.Log.Summary()
	verb := ""
	if result.DryRun {
		verb = " (planned)"
	}
	summaryLine(w, title(string(ActionKeep))+verb+":", fmt.Sprintf("%d", s.Kept))
	summaryLine(w, title(string(ActionRemove))+verb+":", fmt.Sprintf("%d (%s)", s.Removed, formatBytes(s.BytesRemoved)))
	summaryLine(w, title(string(ActionCopy))+verb+":", fmt.Sprintf("%d (%s)", s.Copied, formatBytes(s.BytesCopied)))

	failed := fmt.Sprintf("%d", s.Failed)
	if s.Failed > 0 {
		failed = color.Red.Sprint(failed)
	}
	summaryLine(w, "Failed:", failed)

	skippedCount := fmt.Sprintf("%d", s.Skipped)
	if s.Skipped > 0 {
		skippedCount = color.Yellow.Sprint(skippedCount)
	}
	summaryLine(w, "Skipped:", skippedCount)
	summaryLine(w, "Duration:", result.Duration.Round(time.Millisecond).String())

	failures := result.Log.Failures()
	if len(failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.Red.Sprint("Failures:"))
		for _, e := range failures {
			target := e.Path
			if e.Destination != "" {
				target = e.Path + " -> " + e.Destination
			}
			fmt.Fprintf(w, "  %s %s\n      %s\n",
				runewidth.FillRight(title(string(e.Action)), 7),
				runewidth.Truncate(target, pathWidth, "..."),
				e.Reason,
			)
		}
	}
	fmt.Fprintln(w)
}

func summaryLine(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", runewidth.FillRight(label, 20), value)
}
