package git

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// requireGit skips integration tests in short mode or without a git binary.
func requireGit(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// testOrigin is a non-bare repository acting as the remote of a mirror.
type testOrigin struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	wt   *gogit.Worktree
	when time.Time
}

func newTestOrigin(t *testing.T) *testOrigin {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	return &testOrigin{
		t:    t,
		dir:  dir,
		repo: repo,
		wt:   wt,
		when: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (o *testOrigin) signature() *object.Signature {
	return &object.Signature{Name: "Test", Email: "test@example.com", When: o.when}
}

// commit writes files and commits them one hour after the previous commit.
func (o *testOrigin) commit(msg string, files map[string]string) string {
	o.t.Helper()
	for rel, content := range files {
		full := filepath.Join(o.dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			o.t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			o.t.Fatalf("WriteFile: %v", err)
		}
		if _, err := o.wt.Add(rel); err != nil {
			o.t.Fatalf("Add: %v", err)
		}
	}

	o.when = o.when.Add(time.Hour)
	hash, err := o.wt.Commit(msg, &gogit.CommitOptions{
		Author:    o.signature(),
		Committer: o.signature(),
	})
	if err != nil {
		o.t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func (o *testOrigin) checkout(branch string, create bool) {
	o.t.Helper()
	err := o.wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	if err != nil {
		o.t.Fatalf("Checkout %s: %v", branch, err)
	}
}

func (o *testOrigin) deleteBranch(branch string) {
	o.t.Helper()
	if err := o.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(branch)); err != nil {
		o.t.Fatalf("RemoveReference: %v", err)
	}
}

func (o *testOrigin) head() string {
	o.t.Helper()
	ref, err := o.repo.Head()
	if err != nil {
		o.t.Fatalf("Head: %v", err)
	}
	return ref.Hash().String()
}

func (o *testOrigin) tag(name string) {
	o.t.Helper()
	ref, err := o.repo.Head()
	if err != nil {
		o.t.Fatalf("Head: %v", err)
	}
	_, err = o.repo.CreateTag(name, ref.Hash(), &gogit.CreateTagOptions{
		Tagger:  o.signature(),
		Message: "release " + name,
	})
	if err != nil {
		o.t.Fatalf("CreateTag: %v", err)
	}
}

func (o *testOrigin) deleteTag(name string) {
	o.t.Helper()
	if err := o.repo.DeleteTag(name); err != nil {
		o.t.Fatalf("DeleteTag: %v", err)
	}
}

// cloneMirror clones origin into a fresh bare mirror.
func cloneMirror(t *testing.T, o *testOrigin) *Mirror {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror-git")
	m, err := Clone(context.Background(), o.dir, path, DefaultMirrorOptions())
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	return m
}

// parseStream parses every commit of a log or show stream.
func parseStream(t *testing.T, s LineStream, err error) []*Commit {
	t.Helper()
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	commits, err := NewParser(s).ParseAll()
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	return commits
}

func drain(t *testing.T, s LineStream, err error) []string {
	t.Helper()
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	lines, err := ReadAll(s)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAll: %v", err)
	}
	return lines
}
