package output

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/masmgr/githistory/internal/git"
)

var csvHeaders = []string{"Commit", "Parents", "Author", "AuthorDate", "Committer", "CommitDate",
	"Subject", "Action", "Kind", "File", "NewFile", "Added", "Removed"}

// CSVWriter writes one row per file entry. Commits without files get a
// single row with the file columns empty.
type CSVWriter struct {
	w             *csv.Writer
	headerWritten bool
}

// NewCSVWriter creates a CSV record writer over out.
func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(out)}
}

func (w *CSVWriter) writeHeader() error {
	if w.headerWritten {
		return nil
	}
	w.headerWritten = true
	return w.w.Write(csvHeaders)
}

func (w *CSVWriter) WriteCommit(c *git.Commit) error {
	if err := w.writeHeader(); err != nil {
		return err
	}

	base := []string{
		c.Hash,
		strings.Join(c.Parents, " "),
		c.Header("Author"),
		c.Header("AuthorDate"),
		c.Header("Commit"),
		c.Header("CommitDate"),
		subject(c.Message),
	}
	if len(c.Files) == 0 {
		return w.w.Write(append(base, "", "", "", "", "", ""))
	}
	for _, f := range c.Files {
		row := append(append([]string(nil), base...),
			f.Action,
			f.Kind().String(),
			f.File,
			f.NewFile,
			f.Added,
			f.Removed,
		)
		if err := w.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) Close() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}
