package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/masmgr/githistory/internal/aggregation"
	"github.com/masmgr/githistory/internal/git"
)

// ConsoleWriter prints commits in a git-log like layout.
type ConsoleWriter struct {
	out     io.Writer
	report  ReportInfo
	started bool
	summary aggregation.Summary
}

func (w *ConsoleWriter) header() {
	if w.started {
		return
	}
	w.started = true
	color.New(color.FgGreen).Fprintln(w.out, "Commit History")
	fmt.Fprintf(w.out, "Repository: %s\n", w.report.URI)
	label, value := dateRangeLabelAndValue(w.report.Since, w.report.Until)
	fmt.Fprintf(w.out, "%s: %s\n\n", label, value)
}

// WriteCommit prints one commit with its file table.
func (w *ConsoleWriter) WriteCommit(c *git.Commit) error {
	w.header()
	w.summary.Add(c)

	color.New(color.FgYellow).Fprintf(w.out, "commit %s", c.Hash)
	if len(c.Refs) > 0 {
		color.New(color.FgCyan).Fprintf(w.out, " (%s)", strings.Join(c.Refs, ", "))
	}
	fmt.Fprintln(w.out)
	if c.IsMerge() {
		fmt.Fprintf(w.out, "Merge:  %s\n", strings.Join(c.Parents, " "))
	}
	fmt.Fprintf(w.out, "Author: %s\n", c.Header("Author"))
	fmt.Fprintf(w.out, "Date:   %s\n", c.Header("CommitDate"))
	if c.Message != "" {
		fmt.Fprintln(w.out)
		for _, line := range strings.Split(c.Message, "\n") {
			fmt.Fprintf(w.out, "    %s\n", line)
		}
	}
	fmt.Fprintln(w.out)

	if len(c.Files) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	for _, f := range c.Files {
		added, removed := "+"+f.Added, "-"+f.Removed
		if f.IsBinary() {
			added, removed = "bin", ""
		}
		path := f.File
		if f.NewFile != "" {
			path += " -> " + f.NewFile
		}
		if f.ModeChanged() {
			path += " (mode " + f.NewMode().String() + ")"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", kindColor(f.Kind())(f.Kind().String()), added, removed, path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w.out)
	return nil
}

// Close prints the totals.
func (w *ConsoleWriter) Close() error {
	w.header()
	if w.summary.Commits == 0 {
		fmt.Fprintln(w.out, "No commits found in the specified range.")
		return nil
	}
	fmt.Fprintf(w.out, "Total commits: %d, Total churn: %d\n", w.summary.Commits, w.summary.TotalChurn())
	_, err := fmt.Fprintf(w.out, "Authors: %d, Merges: %d, Files changed: %d\n",
		w.summary.Authors, w.summary.Merges, w.summary.Files)
	return err
}

func kindColor(kind git.ChangeKind) func(string, ...interface{}) string {
	switch kind {
	case git.ChangeKindAdded:
		return color.GreenString
	case git.ChangeKindDeleted:
		return color.RedString
	case git.ChangeKindRenamed, git.ChangeKindCopied:
		return color.CyanString
	default:
		return color.YellowString
	}
}
