// Package report renders the human-readable shutdown summary (spec §6's
// output tree entry INDEX.md) from a finished run's manifest snapshot,
// grounded on the nao1215-onionscan retrieval example's
// internal/report/markdown.go: fluent markdown.Markdown builder calls
// instead of hand-built string concatenation.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/corvid-labs/reconcrawl/internal/manifest"
)

// WriteIndex renders snap as a Markdown document to w: run metadata, budget
// usage, per-family pattern stats, discovered endpoints, and error counts.
func WriteIndex(w io.Writer, runID string, snap manifest.Snapshot) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + runID + "`"},
			{"Target", snap.Metadata.Target},
			{"Started", snap.Metadata.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", snap.Metadata.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Config Hash", "`" + snap.Metadata.ConfigHash + "`"},
			{"Depth Max", strconv.Itoa(snap.Metadata.DepthMax)},
			{"Artifacts", strconv.Itoa(len(snap.Files))},
		},
	})
	md.PlainText("")

	md.H2("Budgets")
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Used", "Max"},
		Rows:   budgetRows(snap.Metadata.BudgetsUsed, snap.Metadata.BudgetsMax),
	})
	md.PlainText("")

	md.H2("Endpoint Families")
	if len(snap.Patterns) == 0 {
		md.PlainText("_none observed_")
	} else {
		md.Table(markdown.TableSet{
			Header: []string{"Family Key", "Count", "Samples Saved", "Skipped"},
			Rows:   patternRows(snap.Patterns),
		})
	}
	md.PlainText("")

	md.H2("Discovered Endpoints")
	if len(snap.Endpoints) == 0 {
		md.PlainText("_none observed_")
	} else {
		rows := make([][]string, 0, len(snap.Endpoints))
		for _, ep := range snap.Endpoints {
			rows = append(rows, []string{ep.URL, ep.Source, fmt.Sprintf("%.2f", ep.Score)})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Source", "Score"}, Rows: rows})
	}
	md.PlainText("")

	md.H2("Errors")
	if len(snap.Errors) == 0 {
		md.PlainText("_none recorded_")
	} else {
		rows := make([][]string, 0, len(snap.Errors))
		for _, e := range snap.Errors {
			rows = append(rows, []string{e.Kind, strconv.Itoa(e.Count)})
		}
		md.Table(markdown.TableSet{Header: []string{"Kind", "Count"}, Rows: rows})
	}

	return md.Build()
}

func budgetRows(used, max map[string]int) [][]string {
	kinds := []string{"pages", "js", "api"}
	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{k, strconv.Itoa(used[k]), strconv.Itoa(max[k])})
	}
	return rows
}

func patternRows(patterns map[string]manifest.PatternStat) [][]string {
	keys := make([]string, 0, len(patterns))
	for k := range patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		stat := patterns[k]
		rows = append(rows, []string{k, strconv.Itoa(stat.Count), strconv.Itoa(stat.SamplesSaved), strconv.Itoa(stat.Skipped)})
	}
	return rows
}
