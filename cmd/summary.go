package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bruin-data/medallion/pkg/scheduler"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xlab/treeprint"
)

type TaskTypeStats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

type ExecutionSummary struct {
	Assets TaskTypeStats
	Checks TaskTypeStats
}

// splitFailures separates failures that fail the run from the ones of non-blocking checks.
func splitFailures(results []*scheduler.TaskExecutionResult) ([]*scheduler.TaskExecutionResult, []*scheduler.TaskExecutionResult) {
	failed := make([]*scheduler.TaskExecutionResult, 0)
	warnings := make([]*scheduler.TaskExecutionResult, 0)
	for _, res := range results {
		if res.Error == nil {
			continue
		}
		if res.Instance.Blocking() {
			failed = append(failed, res)
		} else {
			warnings = append(warnings, res)
		}
	}
	return failed, warnings
}

func analyzeResults(s *scheduler.Scheduler) ExecutionSummary {
	summary := ExecutionSummary{}
	for _, status := range []scheduler.TaskInstanceStatus{scheduler.Succeeded, scheduler.Failed, scheduler.UpstreamFailed, scheduler.Skipped} {
		for _, instance := range s.GetTaskInstancesByStatus(status) {
			stats := &summary.Checks
			if instance.GetType() == scheduler.TaskInstanceTypeMain {
				stats = &summary.Assets
			}

			stats.Total++
			switch status { //nolint:exhaustive
			case scheduler.Succeeded:
				stats.Succeeded++
			case scheduler.Failed, scheduler.UpstreamFailed:
				stats.Failed++
			case scheduler.Skipped:
				stats.Skipped++
			}
		}
	}
	return summary
}

func statusColor(status scheduler.TaskInstanceStatus) *color.Color {
	switch status { //nolint:exhaustive
	case scheduler.Succeeded:
		return color.New(color.FgGreen)
	case scheduler.Failed:
		return color.New(color.FgRed)
	case scheduler.UpstreamFailed:
		return color.New(color.FgYellow)
	}
	return color.New(color.Faint)
}

// printExecutionTable renders one row per asset that was part of the run with the outcome of its
// checks, e.g. "2/3".
func printExecutionTable(results []*scheduler.TaskExecutionResult, s *scheduler.Scheduler) {
	type row struct {
		status       scheduler.TaskInstanceStatus
		checks       int
		checksPassed int
	}

	rows := make(map[string]*row)
	names := make([]string, 0)
	get := func(name string) *row {
		if r, ok := rows[name]; ok {
			return r
		}
		r := &row{status: scheduler.Skipped}
		rows[name] = r
		names = append(names, name)
		return r
	}

	for _, res := range results {
		r := get(res.Instance.GetAsset().Name)
		if res.Instance.GetType() == scheduler.TaskInstanceTypeMain {
			r.status = res.Instance.GetStatus()
			continue
		}
		r.checks++
		if res.Error == nil {
			r.checksPassed++
		}
	}
	for _, instance := range s.GetTaskInstancesByStatus(scheduler.UpstreamFailed) {
		if instance.GetType() == scheduler.TaskInstanceTypeMain {
			get(instance.GetAsset().Name).status = scheduler.UpstreamFailed
		}
	}

	if len(names) == 0 {
		return
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Asset", "Status", "Checks"})
	for _, name := range names {
		r := rows[name]
		checks := faint("-")
		if r.checks > 0 {
			checks = fmt.Sprintf("%d/%d", r.checksPassed, r.checks)
		}
		t.AppendRow(table.Row{name, statusColor(r.status).Sprint(r.status.String()), checks})
	}

	fmt.Println()
	t.Render()
}

func formatStats(stats TaskTypeStats) string {
	out := color.New(color.FgGreen).Sprintf("%d succeeded", stats.Succeeded)
	if stats.Failed > 0 {
		out = color.New(color.FgRed).Sprintf("%d failed", stats.Failed) + " / " + out
	}
	if stats.Skipped > 0 {
		out += " / " + color.New(color.Faint).Sprintf("%d skipped", stats.Skipped)
	}
	return out
}

func printExecutionSummary(results []*scheduler.TaskExecutionResult, s *scheduler.Scheduler, duration time.Duration, hasFailures bool) {
	printExecutionTable(results, s)

	summary := analyzeResults(s)
	if hasFailures {
		summaryPrinter.Printf("\n\nmedallion run completed with %s in %s\n\n",
			color.New(color.FgRed).Sprint("failures"),
			duration.Truncate(time.Millisecond).String())
	} else {
		summaryPrinter.Printf("\n\nmedallion run completed %s in %s\n\n",
			color.New(color.FgGreen).Sprint("successfully"),
			duration.Truncate(time.Millisecond).String())
	}

	mark := func(stats TaskTypeStats) string {
		if stats.Failed > 0 {
			return color.New(color.FgRed).Sprint("✗")
		}
		return color.New(color.FgGreen).Sprint("✓")
	}

	if summary.Assets.Total > 0 {
		summaryPrinter.Printf(" %s Assets executed      %s\n", mark(summary.Assets), formatStats(summary.Assets))
	}
	if summary.Checks.Total > 0 {
		summaryPrinter.Printf(" %s Quality checks       %s\n", mark(summary.Checks), formatStats(summary.Checks))
	}
}

func resultsTree(title string, results []*scheduler.TaskExecutionResult, errColor *color.Color) treeprint.Tree {
	data := make(map[string][]*scheduler.TaskExecutionResult, len(results))
	names := make([]string, 0)
	for _, result := range results {
		assetName := result.Instance.GetAsset().Name
		if _, ok := data[assetName]; !ok {
			names = append(names, assetName)
		}
		data[assetName] = append(data[assetName], result)
	}
	sort.Strings(names)

	tree := treeprint.NewWithRoot(errColor.Sprintf("%d %s", len(names), title))
	for _, assetName := range names {
		assetBranch := tree.AddBranch(color.New(color.FgYellow).Sprint(assetName))

		for _, result := range data[assetName] {
			switch instance := result.Instance.(type) {
			case *scheduler.ColumnCheckInstance:
				assetBranch.AddNode(fmt.Sprintf("%s.%s - %s",
					color.New(color.FgCyan).Sprint(instance.Column.Name),
					color.New(color.FgMagenta).Sprint(instance.Check.Name),
					errColor.Sprintf("%s", result.Error)))

			case *scheduler.CustomCheckInstance:
				assetBranch.AddNode(fmt.Sprintf("%s %s - %s",
					color.New(color.FgMagenta).Sprint(instance.Check.Name),
					faint("custom check"),
					errColor.Sprintf("%s", result.Error)))

			default:
				assetBranch.AddNode(errColor.Sprintf("%s", result.Error))
			}
		}
	}
	return tree
}

func printErrorsInResults(results []*scheduler.TaskExecutionResult) {
	fmt.Println()
	fmt.Println(resultsTree("assets failed", results, color.New(color.FgRed)).String())
}

func printWarningsInResults(results []*scheduler.TaskExecutionResult) {
	fmt.Println()
	fmt.Println(resultsTree("assets with non-blocking check failures", results, color.New(color.FgYellow)).String())
}
