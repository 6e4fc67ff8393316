package aggregation

import (
	"strconv"
	"strings"
	"time"

	"github.com/masmgr/githistory/internal/git"
)

// CommitMetrics holds diffusion and size metrics for a single commit record.
type CommitMetrics struct {
	Hash           string
	When           time.Time // zero when CommitDate is missing or malformed
	Author         string
	FileCount      int // NF: Number of files
	DirectoryCount int // ND: Number of directories
	SubsystemCount int // NS: Number of subsystems (top-level directories)
	LinesAdded     int // LA
	LinesDeleted   int // LD
	BinaryFiles    int
}

// TotalChurn returns the total lines changed (added + deleted).
func (c *CommitMetrics) TotalChurn() int {
	return c.LinesAdded + c.LinesDeleted
}

// Calculate computes metrics for a single commit record.
func Calculate(commit *git.Commit) CommitMetrics {
	directories := make(map[string]struct{})
	subsystems := make(map[string]struct{})

	m := CommitMetrics{
		Hash:      commit.Hash,
		Author:    commit.Header("Author"),
		FileCount: len(commit.Files),
	}
	if when, err := commit.CommitTime(); err == nil {
		m.When = when
	}

	for _, f := range commit.Files {
		if f.IsBinary() {
			m.BinaryFiles++
		} else {
			m.LinesAdded += atoi(f.Added)
			m.LinesDeleted += atoi(f.Removed)
		}

		path := f.File
		if f.NewFile != "" {
			path = f.NewFile
		}
		dir, subsystem := extractPathComponents(path)
		if dir != "" {
			directories[strings.ToLower(dir)] = struct{}{}
		}
		if subsystem != "" {
			subsystems[strings.ToLower(subsystem)] = struct{}{}
		}
	}

	m.DirectoryCount = len(directories)
	m.SubsystemCount = len(subsystems)
	if m.SubsystemCount == 0 && m.FileCount > 0 {
		m.SubsystemCount = 1
	}
	return m
}

// CalculateAll computes metrics for all commit records.
func CalculateAll(commits []*git.Commit) []CommitMetrics {
	results := make([]CommitMetrics, 0, len(commits))
	for _, c := range commits {
		results = append(results, Calculate(c))
	}
	return results
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// extractPathComponents extracts directory path and subsystem from a file path.
// Subsystem is the first directory component (e.g., "src", "tests", "docs").
func extractPathComponents(path string) (directory, subsystem string) {
	if path == "" {
		return "", ""
	}

	normalizedPath := strings.ReplaceAll(path, "\\", "/")

	lastSlash := strings.LastIndex(normalizedPath, "/")
	if lastSlash <= 0 {
		// File is in root directory
		return "", ""
	}

	directory = normalizedPath[:lastSlash]
	subsystem = normalizedPath[:strings.Index(normalizedPath, "/")]
	return directory, subsystem
}
