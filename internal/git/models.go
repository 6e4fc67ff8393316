package git

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// CommitDateLayout is the date format git prints for --pretty=fuller.
const CommitDateLayout = "Mon Jan 2 15:04:05 2006 -0700"

// Commit is one record parsed from a git log stream.
type Commit struct {
	Hash    string
	Parents []string
	Refs    []string
	// Headers holds every "Name: value" header line by name.
	Headers map[string]string
	// Trailers holds whitelisted message trailers in document order.
	Trailers map[string][]string
	Message  string
	Files    []FileEntry
}

// Header returns the named header value, or "" when absent.
func (c *Commit) Header(name string) string {
	return c.Headers[name]
}

// CommitTime parses the CommitDate header.
func (c *Commit) CommitTime() (time.Time, error) {
	return time.Parse(CommitDateLayout, c.Headers["CommitDate"])
}

// AuthorTime parses the AuthorDate header.
func (c *Commit) AuthorTime() (time.Time, error) {
	return time.Parse(CommitDateLayout, c.Headers["AuthorDate"])
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// MarshalJSON renders the flat record shape: identity fields, then every
// header and trailer as a top-level key, then message and files.
func (c *Commit) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Headers)+len(c.Trailers)+5)
	for k, v := range c.Headers {
		m[k] = v
	}
	for k, v := range c.Trailers {
		m[k] = v
	}
	m["commit"] = c.Hash
	m["parents"] = nonNil(c.Parents)
	m["refs"] = nonNil(c.Refs)
	if c.Message != "" {
		m["message"] = c.Message
	}
	files := c.Files
	if files == nil {
		files = []FileEntry{}
	}
	m["files"] = files
	return json.Marshal(m)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FileEntry is the merged raw and numstat data for one path of a commit.
type FileEntry struct {
	File    string   `json:"file"`
	NewFile string   `json:"newfile,omitempty"`
	Action  string   `json:"action,omitempty"`
	Modes   []string `json:"modes,omitempty"`
	Indexes []string `json:"indexes,omitempty"`
	Added   string   `json:"added,omitempty"`
	Removed string   `json:"removed,omitempty"`
}

// Kind classifies the action code.
func (f FileEntry) Kind() ChangeKind {
	return kindFromAction(f.Action)
}

// IsBinary reports whether numstat marked the file as binary.
func (f FileEntry) IsBinary() bool {
	return f.Added == "-" || f.Removed == "-"
}

// Churn returns total lines changed (added + removed). Binary files count as 0.
func (f FileEntry) Churn() int {
	added, _ := strconv.Atoi(f.Added)
	removed, _ := strconv.Atoi(f.Removed)
	return added + removed
}

// ChangeKind represents the type of change.
type ChangeKind int

const (
	ChangeKindUnknown ChangeKind = iota
	ChangeKindAdded
	ChangeKindModified
	ChangeKindDeleted
	ChangeKindRenamed
	ChangeKindCopied
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeKindAdded:
		return "added"
	case ChangeKindModified:
		return "modified"
	case ChangeKindDeleted:
		return "deleted"
	case ChangeKindRenamed:
		return "renamed"
	case ChangeKindCopied:
		return "copied"
	default:
		return "unknown"
	}
}

// kindFromAction maps a raw action code to a ChangeKind. Combined (merge)
// codes such as "MR" are classified by their first letter.
func kindFromAction(action string) ChangeKind {
	if action == "" {
		return ChangeKindUnknown
	}
	switch action[0] {
	case 'A':
		return ChangeKindAdded
	case 'D':
		return ChangeKindDeleted
	case 'R':
		return ChangeKindRenamed
	case 'C':
		return ChangeKindCopied
	case 'M', 'T':
		return ChangeKindModified
	default:
		return ChangeKindUnknown
	}
}

// Ref is a named pointer discovered in the mirror or on the remote.
type Ref struct {
	Hash    string
	RefName string
}

// IsPeeled reports whether the ref is an annotated tag peel entry.
func (r Ref) IsPeeled() bool {
	return len(r.RefName) > 3 && r.RefName[len(r.RefName)-3:] == "^{}"
}

// LogOptions bounds a log or rev-list invocation.
type LogOptions struct {
	// Since and Until are ignored when zero.
	Since time.Time
	Until time.Time
	// Branches selects refs/heads/<name> entries. nil means every branch,
	// tag and origin remote; an empty non-nil slice selects nothing.
	Branches []string
}

// sortedFiles returns the accumulated entries ordered by path.
func sortedFiles(files map[string]*FileEntry) []FileEntry {
	out := make([]FileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}
