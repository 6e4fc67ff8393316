package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/masmgr/githistory/internal/git"
)

// JSONWriter collects the commits and writes one JSON document on Close.
type JSONWriter struct {
	out     io.Writer
	report  ReportInfo
	commits []*git.Commit
}

// JSONReport is the JSON output structure for a fetch.
type JSONReport struct {
	URI          string        `json:"uri"`
	Since        *string       `json:"since,omitempty"`
	Until        *string       `json:"until,omitempty"`
	GeneratedAt  string        `json:"generatedAt"`
	TotalCommits int           `json:"totalCommits"`
	Commits      []*git.Commit `json:"commits"`
}

func (w *JSONWriter) WriteCommit(c *git.Commit) error {
	w.commits = append(w.commits, c)
	return nil
}

// Close outputs the collected commits as JSON.
func (w *JSONWriter) Close() error {
	commits := w.commits
	if commits == nil {
		commits = []*git.Commit{}
	}
	generated := w.report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	report := JSONReport{
		URI:          w.report.URI,
		Since:        formatDate(w.report.Since),
		Until:        formatDate(w.report.Until),
		GeneratedAt:  generated.Format(time.RFC3339),
		TotalCommits: len(commits),
		Commits:      commits,
	}

	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
