package output

import (
	"io"
	"os"
	"time"

	"github.com/masmgr/githistory/internal/git"
)

// Compile-time interface conformance checks.
var (
	_ RecordWriter = (*ConsoleWriter)(nil)
	_ RecordWriter = (*JSONWriter)(nil)
	_ RecordWriter = (*CSVWriter)(nil)
	_ RecordWriter = (*MarkdownWriter)(nil)
	_ RecordWriter = (*CIWriter)(nil)
	_ RecordWriter = (*filteredWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	OutputPath string
	Filter     FileFilter
}

// ReportInfo describes the fetch the records come from.
type ReportInfo struct {
	URI         string
	Since       time.Time
	Until       time.Time
	GeneratedAt time.Time
}

// RecordWriter writes commit records as they arrive. Close flushes
// anything buffered and writes the trailing summary, if the format has one.
type RecordWriter interface {
	WriteCommit(c *git.Commit) error
	Close() error
}

// NewRecordWriter creates a record writer for the specified format.
func NewRecordWriter(format OutputFormat, out io.Writer, report ReportInfo) RecordWriter {
	switch format {
	case FormatJSON:
		return &JSONWriter{out: out, report: report}
	case FormatCSV:
		return NewCSVWriter(out)
	case FormatMarkdown:
		return &MarkdownWriter{out: out, report: report}
	case FormatCI:
		return &CIWriter{out: out, report: report}
	default:
		return &ConsoleWriter{out: out, report: report}
	}
}

// Open creates the writer described by options, writing to stdout or to
// options.OutputPath, with the file filter applied to every record.
func Open(options OutputOptions, report ReportInfo) (RecordWriter, error) {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return nil, err
	}
	return &filteredWriter{
		RecordWriter: NewRecordWriter(options.Format, out, report),
		filter:       options.Filter,
		file:         file,
	}, nil
}

type filteredWriter struct {
	RecordWriter
	filter FileFilter
	file   *os.File
}

func (w *filteredWriter) WriteCommit(c *git.Commit) error {
	return w.RecordWriter.WriteCommit(w.filter.Apply(c))
}

func (w *filteredWriter) Close() error {
	err := w.RecordWriter.Close()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
