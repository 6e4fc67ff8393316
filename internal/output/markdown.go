package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/masmgr/githistory/internal/git"
)

// MarkdownWriter writes commits as Markdown sections.
type MarkdownWriter struct {
	out     io.Writer
	report  ReportInfo
	started bool
	commits int
}

func (w *MarkdownWriter) header() {
	if w.started {
		return
	}
	w.started = true
	fmt.Fprintln(w.out, "# Commit History")
	fmt.Fprintln(w.out)
	fmt.Fprintf(w.out, "**Repository:** %s\n\n", w.report.URI)
	label, value := dateRangeLabelAndValue(w.report.Since, w.report.Until)
	fmt.Fprintf(w.out, "**%s:** %s\n\n", label, value)
}

func (w *MarkdownWriter) WriteCommit(c *git.Commit) error {
	w.header()
	w.commits++

	fmt.Fprintf(w.out, "## `%s` %s\n\n", shortHash(c.Hash), escapeMarkdown(truncateMessage(subject(c.Message), 72)))
	fmt.Fprintf(w.out, "- **Author:** %s\n", escapeMarkdown(c.Header("Author")))
	fmt.Fprintf(w.out, "- **Date:** %s\n", c.Header("CommitDate"))
	if len(c.Refs) > 0 {
		fmt.Fprintf(w.out, "- **Refs:** %s\n", escapeMarkdown(strings.Join(c.Refs, ", ")))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Trailers)) {
		for _, v := range c.Trailers[name] {
			fmt.Fprintf(w.out, "- **%s:** %s\n", name, escapeMarkdown(v))
		}
	}
	fmt.Fprintln(w.out)

	if len(c.Files) == 0 {
		return nil
	}
	fmt.Fprintln(w.out, "| Action | Path | Added | Removed |")
	fmt.Fprintln(w.out, "|--------|------|-------|---------|")
	for _, f := range c.Files {
		path := "`" + f.File + "`"
		if f.NewFile != "" {
			path += " → `" + f.NewFile + "`"
		}
		fmt.Fprintf(w.out, "| %s | %s | %s | %s |\n", f.Kind(), path, f.Added, f.Removed)
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

func (w *MarkdownWriter) Close() error {
	w.header()
	_, err := fmt.Fprintf(w.out, "**Total Commits:** %d\n", w.commits)
	return err
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
