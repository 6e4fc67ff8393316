package output

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/masmgr/githistory/internal/git"
)

const reportDateLayout = "2006-01-02"

func dateRangeLabelAndValue(since, until time.Time) (string, string) {
	switch {
	case !since.IsZero() && !until.IsZero():
		return "Period", since.Format(reportDateLayout) + " to " + until.Format(reportDateLayout)
	case !since.IsZero():
		return "Since", since.Format(reportDateLayout)
	case !until.IsZero():
		return "Until", until.Format(reportDateLayout)
	default:
		return "Period", "all history"
	}
}

func formatDate(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	formatted := t.Format(reportDateLayout)
	return &formatted
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}

// subject is the first line of a commit message.
func subject(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i != -1 {
		return msg[:i]
	}
	return msg
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// FileFilter keeps the file entries matching Include (all when empty)
// and not matching Exclude. Patterns are doublestar globs.
type FileFilter struct {
	Include []string
	Exclude []string
}

// IsEmpty reports whether the filter has no patterns.
func (f FileFilter) IsEmpty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Match checks if a path matches the include/exclude filters.
func (f FileFilter) Match(path string) bool {
	// Normalize path separators
	path = strings.ReplaceAll(path, "\\", "/")

	for _, pattern := range f.Exclude {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// Apply returns c with only the matching file entries. A renamed entry
// matches on either path. c itself is never modified.
func (f FileFilter) Apply(c *git.Commit) *git.Commit {
	if f.IsEmpty() {
		return c
	}
	out := *c
	out.Files = make([]git.FileEntry, 0, len(c.Files))
	for _, fe := range c.Files {
		if f.Match(fe.File) || (fe.NewFile != "" && f.Match(fe.NewFile)) {
			out.Files = append(out.Files, fe)
		}
	}
	return &out
}
