package aggregation

import (
	"time"

	"github.com/masmgr/githistory/internal/git"
)

// Summary accumulates statistics over a stream of commit records.
// The zero value is ready to use.
type Summary struct {
	Commits      int
	Merges       int
	Files        int
	LinesAdded   int
	LinesDeleted int
	BinaryFiles  int
	Authors      int
	First        time.Time
	Last         time.Time

	authors map[string]struct{}
}

// Add folds one record into the summary.
func (s *Summary) Add(c *git.Commit) {
	m := Calculate(c)

	s.Commits++
	if c.IsMerge() {
		s.Merges++
	}
	s.Files += m.FileCount
	s.LinesAdded += m.LinesAdded
	s.LinesDeleted += m.LinesDeleted
	s.BinaryFiles += m.BinaryFiles

	if m.Author != "" {
		if s.authors == nil {
			s.authors = make(map[string]struct{})
		}
		s.authors[m.Author] = struct{}{}
		s.Authors = len(s.authors)
	}

	if m.When.IsZero() {
		return
	}
	if s.First.IsZero() || m.When.Before(s.First) {
		s.First = m.When
	}
	if m.When.After(s.Last) {
		s.Last = m.When
	}
}

// TotalChurn returns the total lines changed (added + deleted).
func (s *Summary) TotalChurn() int {
	return s.LinesAdded + s.LinesDeleted
}
