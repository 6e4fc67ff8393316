package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/masmgr/githistory/internal/aggregation"
	"github.com/masmgr/githistory/internal/git"
)

// CIWriter streams commits as NDJSON (one JSON object per line) for
// pipelines. A summary line closes the stream.
type CIWriter struct {
	out     io.Writer
	report  ReportInfo
	summary aggregation.Summary
}

// CICommitEntry is one commit line.
type CICommitEntry struct {
	Type   string      `json:"type"`
	Record *git.Commit `json:"record"`
}

// CISummary is the last line of CI output, containing aggregate statistics.
type CISummary struct {
	Type         string `json:"type"`
	URI          string `json:"uri"`
	TotalCommits int    `json:"totalCommits"`
	TotalFiles   int    `json:"totalFiles"`
	TotalChurn   int    `json:"totalChurn"`
	LinesAdded   int    `json:"linesAdded"`
	LinesDeleted int    `json:"linesDeleted"`
	Merges       int    `json:"merges"`
	Authors      int    `json:"authors"`
}

func (w *CIWriter) WriteCommit(c *git.Commit) error {
	w.summary.Add(c)
	return writeNDJSONLine(w.out, CICommitEntry{Type: "commit", Record: c})
}

func (w *CIWriter) Close() error {
	return writeNDJSONLine(w.out, CISummary{
		Type:         "summary",
		URI:          w.report.URI,
		TotalCommits: w.summary.Commits,
		TotalFiles:   w.summary.Files,
		TotalChurn:   w.summary.TotalChurn(),
		LinesAdded:   w.summary.LinesAdded,
		LinesDeleted: w.summary.LinesDeleted,
		Merges:       w.summary.Merges,
		Authors:      w.summary.Authors,
	})
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
