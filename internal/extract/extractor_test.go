package extract

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/masmgr/githistory/internal/git"
)

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccc"
)

func commitLines(hash, parent, msg, file string) []string {
	header := "commit " + hash
	if parent != "" {
		header += " " + parent
	}
	return []string{
		header,
		"Author:     Test <test@example.com>",
		"AuthorDate: Tue Aug 14 14:30:13 2012 -0300",
		"Commit:     Test <test@example.com>",
		"CommitDate: Tue Aug 14 14:30:13 2012 -0300",
		"",
		"    " + msg,
		"",
		":100644 100644 e69de29... 58a6c75... M\t" + file,
		"1\t0\t" + file,
		"",
	}
}

func threeCommitLog() []string {
	var lines []string
	lines = append(lines, commitLines(hashA, "", "first", "a.txt")...)
	lines = append(lines, commitLines(hashB, hashA, "second", "b.txt")...)
	lines = append(lines, commitLines(hashC, hashB, "third", "c.txt")...)
	return lines
}

// newTestExtractor returns an extractor whose opener always hands out m.
func newTestExtractor(m *git.MockMirror) (*Extractor, *int) {
	opened := 0
	open := func(_ context.Context, _, _ string) (git.Repository, error) {
		opened++
		return m, nil
	}
	return New(git.DefaultMirrorOptions(), WithOpener(open)), &opened
}

func collect(t *testing.T, e *Extractor, target Target, opts Options) []string {
	t.Helper()
	var hashes []string
	n, err := e.Each(context.Background(), target, opts, func(c *git.Commit) error {
		hashes = append(hashes, c.Hash)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if n != len(hashes) {
		t.Errorf("Each counted %d records, callback saw %d", n, len(hashes))
	}
	return hashes
}

func mirrorTarget(t *testing.T) Target {
	return Target{URI: "https://example.com/repo.git", Path: t.TempDir()}
}

func TestExtract_FullWindow(t *testing.T) {
	m := git.NewMockMirror(threeCommitLog(), nil)
	e, opened := newTestExtractor(m)

	since := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	got := collect(t, e, mirrorTarget(t), Options{Mode: ModeFull, Since: since, Until: until})

	if !slices.Equal(got, []string{hashA, hashB, hashC}) {
		t.Errorf("records = %v", got)
	}
	if *opened != 1 || m.Updated != 1 || m.Synced != 0 {
		t.Errorf("opened=%d updated=%d synced=%d", *opened, m.Updated, m.Synced)
	}
	if len(m.LogOpts) != 1 {
		t.Fatalf("Log called %d times", len(m.LogOpts))
	}
	opts := m.LogOpts[0]
	if !opts.Since.Equal(since) || !opts.Until.Equal(until) || opts.Branches != nil {
		t.Errorf("log options = %+v", opts)
	}
}

func TestExtract_NoUpdate(t *testing.T) {
	m := git.NewMockMirror(threeCommitLog(), nil)
	e, _ := newTestExtractor(m)

	got := collect(t, e, mirrorTarget(t), Options{Mode: ModeNoUpdate})
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
	if m.Updated != 0 {
		t.Errorf("mirror updated %d times in no-update mode", m.Updated)
	}
}

func TestExtract_Latest(t *testing.T) {
	m := git.NewMockMirror(nil, nil)
	m.ShowLines = commitLines(hashC, hashB, "third", "c.txt")
	m.SyncHashes = []string{hashC}
	e, _ := newTestExtractor(m)

	got := collect(t, e, mirrorTarget(t), Options{Mode: ModeLatest})
	if !slices.Equal(got, []string{hashC}) {
		t.Errorf("records = %v", got)
	}
	if m.Synced != 1 || m.Updated != 0 || len(m.LogOpts) != 0 {
		t.Errorf("synced=%d updated=%d logs=%d", m.Synced, m.Updated, len(m.LogOpts))
	}
	if len(m.ShowCalls) != 1 || !slices.Equal(m.ShowCalls[0], []string{hashC}) {
		t.Errorf("Show calls = %v", m.ShowCalls)
	}
}

func TestExtract_LatestNothingNew(t *testing.T) {
	m := git.NewMockMirror(threeCommitLog(), nil)
	m.SyncHashes = []string{}
	e, _ := newTestExtractor(m)

	got := collect(t, e, mirrorTarget(t), Options{Mode: ModeLatest})
	if len(got) != 0 {
		t.Errorf("records = %v, want none", got)
	}
	if len(m.ShowCalls) != 0 {
		t.Errorf("Show called with %v", m.ShowCalls)
	}
}

func TestExtract_LatestWithoutMirrorFallsBack(t *testing.T) {
	m := git.NewMockMirror(threeCommitLog(), nil)
	e, _ := newTestExtractor(m)

	target := Target{URI: "https://example.com/repo.git", Path: filepath.Join(t.TempDir(), "not-cloned-yet")}
	got := collect(t, e, target, Options{Mode: ModeLatest})
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
	if m.Synced != 0 || m.Updated != 1 {
		t.Errorf("synced=%d updated=%d", m.Synced, m.Updated)
	}
}

func TestExtract_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "git.log")
	if err := os.WriteFile(path, []byte(strings.Join(threeCommitLog(), "\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	m := git.NewMockMirror(nil, nil)
	e, opened := newTestExtractor(m)

	got := collect(t, e, Target{URI: "https://example.com/repo.git", Path: path}, Options{Mode: ModeLatest})
	if !slices.Equal(got, []string{hashA, hashB, hashC}) {
		t.Errorf("records = %v", got)
	}
	if *opened != 0 {
		t.Errorf("mirror opened %d times for a log file", *opened)
	}
}

func TestExtract_EmptyRepository(t *testing.T) {
	m := git.NewMockMirror(nil, &git.EmptyRepositoryError{Repository: "https://example.com/repo.git"})
	e, _ := newTestExtractor(m)

	for _, mode := range []Mode{ModeNoUpdate, ModeLatest} {
		t.Run(mode.String(), func(t *testing.T) {
			got := collect(t, e, mirrorTarget(t), Options{Mode: mode})
			if len(got) != 0 {
				t.Errorf("records = %v, want none", got)
			}
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	t.Run("Mirror failure", func(t *testing.T) {
		m := git.NewMockMirror(nil, &git.RepositoryError{Cause: "git command - boom"})
		e, _ := newTestExtractor(m)
		_, err := e.Extract(context.Background(), mirrorTarget(t), Options{})
		var rerr *git.RepositoryError
		if !errors.As(err, &rerr) {
			t.Fatalf("expected *git.RepositoryError, got %v", err)
		}
	})

	t.Run("Open failure", func(t *testing.T) {
		want := errors.New("no mirror")
		e := New(git.DefaultMirrorOptions(), WithOpener(func(context.Context, string, string) (git.Repository, error) {
			return nil, want
		}))
		if _, err := e.Extract(context.Background(), mirrorTarget(t), Options{}); !errors.Is(err, want) {
			t.Fatalf("Extract error = %v, want %v", err, want)
		}
	})

	t.Run("Parse failure", func(t *testing.T) {
		lines := append(commitLines(hashA, "", "first", "a.txt"), "not a commit line")
		m := git.NewMockMirror(lines, nil)
		e, _ := newTestExtractor(m)

		var seen []string
		_, err := e.Each(context.Background(), mirrorTarget(t), Options{Mode: ModeNoUpdate}, func(c *git.Commit) error {
			seen = append(seen, c.Hash)
			return nil
		})
		var perr *git.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *git.ParseError, got %v", err)
		}
		if !slices.Equal(seen, []string{hashA}) {
			t.Errorf("records before the error = %v", seen)
		}
	})

	t.Run("Callback failure", func(t *testing.T) {
		want := errors.New("stop")
		m := git.NewMockMirror(threeCommitLog(), nil)
		e, _ := newTestExtractor(m)
		n, err := e.Each(context.Background(), mirrorTarget(t), Options{}, func(*git.Commit) error { return want })
		if !errors.Is(err, want) || n != 1 {
			t.Errorf("Each = %d, %v", n, err)
		}
	})
}

func TestExtract_Branches(t *testing.T) {
	tests := []struct {
		name     string
		branches []string
		expected []string
	}{
		{name: "All", branches: nil, expected: nil},
		{name: "None", branches: []string{}, expected: []string{}},
		{name: "Plain names", branches: []string{"master", "dev"}, expected: []string{"master", "dev"}},
		{name: "Pattern", branches: []string{"release/*"}, expected: []string{"release/1.0", "release/2.0"}},
		{name: "Pattern and name", branches: []string{"master", "release/**", "master"}, expected: []string{"master", "release/1.0", "release/2.0"}},
		{name: "No match", branches: []string{"hotfix/*"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := git.NewMockMirror(threeCommitLog(), nil)
			m.BranchNames = []string{"dev", "master", "release/1.0", "release/2.0"}
			e, _ := newTestExtractor(m)

			collect(t, e, mirrorTarget(t), Options{Mode: ModeNoUpdate, Branches: tt.branches})
			got := m.LogOpts[0].Branches
			if (got == nil) != (tt.expected == nil) || !slices.Equal(got, tt.expected) {
				t.Errorf("branches = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestExtract_RecoveryFromLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "git.log")
	if err := os.WriteFile(path, []byte(strings.Join(threeCommitLog(), "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestExtractor(git.NewMockMirror(nil, nil))

	got := collect(t, e, Target{Path: path}, Options{RecoveryCommit: hashB})
	if !slices.Equal(got, []string{hashB, hashC}) {
		t.Errorf("records = %v", got)
	}
}

func TestExtract_RecoveryFromMirror(t *testing.T) {
	tests := []struct {
		name  string
		packs []string
		loose bool
		// nil when the recovery goes through log
		shown []string
	}{
		{name: "No packs", packs: nil},
		{name: "Single pack", packs: []string{"p1"}},
		{name: "Single pack and loose objects", packs: []string{"p1"}, loose: true, shown: []string{hashB}},
		{name: "Several packs", packs: []string{"p1", "p2"}, shown: []string{hashB, hashC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := git.NewMockMirror(threeCommitLog(), nil)
			m.Packs = tt.packs
			m.Loose = tt.loose
			m.PackCommits = map[string][]string{"p1": {hashA, hashB}, "p2": {hashC}}
			var showLines []string
			showLines = append(showLines, commitLines(hashB, hashA, "second", "b.txt")...)
			showLines = append(showLines, commitLines(hashC, hashB, "third", "c.txt")...)
			m.ShowLines = showLines
			e, _ := newTestExtractor(m)

			got := collect(t, e, mirrorTarget(t), Options{RecoveryCommit: hashB})
			if !slices.Equal(got, []string{hashB, hashC}) {
				t.Errorf("records = %v", got)
			}
			if m.Updated != 0 {
				t.Error("mirror updated during recovery")
			}
			if tt.shown == nil {
				if len(m.LogOpts) != 1 || len(m.ShowCalls) != 0 {
					t.Errorf("expected a log, got logs=%d shows=%d", len(m.LogOpts), len(m.ShowCalls))
				}
				return
			}
			if len(m.ShowCalls) != 1 || !slices.Equal(m.ShowCalls[0], tt.shown) {
				t.Errorf("Show calls = %v, want [%v]", m.ShowCalls, tt.shown)
			}
		})
	}
}

func TestExtract_RecoveryCommitNotFound(t *testing.T) {
	m := git.NewMockMirror(threeCommitLog(), nil)
	e, _ := newTestExtractor(m)

	got := collect(t, e, mirrorTarget(t), Options{RecoveryCommit: strings.Repeat("d", 40)})
	if len(got) != 0 {
		t.Errorf("records = %v, want none", got)
	}
}

func TestRecords_Empty(t *testing.T) {
	r := emptyRecords()
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestDefaultMirrorPath(t *testing.T) {
	tests := []struct {
		base     string
		uri      string
		expected string
	}{
		{base: "/data", uri: "https://github.com/org/repo.git", expected: "/data/https:/github.com/org/repo.git-git"},
		{base: "/data", uri: "/srv/git/repo", expected: "/data/srv/git/repo-git"},
		{base: "/data/", uri: "repo", expected: "/data/repo-git"},
	}
	for _, tt := range tests {
		if got := DefaultMirrorPath(tt.base, tt.uri); got != tt.expected {
			t.Errorf("DefaultMirrorPath(%q, %q) = %q, want %q", tt.base, tt.uri, got, tt.expected)
		}
	}
}

func TestExtract_CloneFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	e := New(git.DefaultMirrorOptions())
	target := Target{URI: filepath.Join(t.TempDir(), "no-origin"), Path: filepath.Join(t.TempDir(), "mirror-git")}
	_, err := e.Extract(context.Background(), target, Options{})
	var rerr *git.RepositoryError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *git.RepositoryError, got %v", err)
	}
}
