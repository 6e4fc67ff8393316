package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// prettyOutputOpts is the flag set the Parser grammar depends on.
var prettyOutputOpts = []string{
	"--raw",
	"--numstat",
	"--pretty=fuller",
	"--decorate=full",
	"--parents",
	"-M",
	"-C",
	"-c",
}

// gitDateLayout renders --since/--until bounds.
const gitDateLayout = "2006-01-02 15:04:05 -0700"

// Mirror is a bare, disk-resident copy of a remote repository.
// A Mirror must not be shared across goroutines acting on the same path.
type Mirror struct {
	uri       string
	path      string
	sslVerify bool
	logger    *slog.Logger
	git       *runner
}

// MirrorOptions configures Clone and Open.
type MirrorOptions struct {
	// GitBinary is the git executable. Defaults to "git".
	GitBinary string
	// SSLVerify controls TLS verification for clone and sync.
	SSLVerify bool
	Logger    *slog.Logger
}

// DefaultMirrorOptions returns options with TLS verification enabled.
func DefaultMirrorOptions() MirrorOptions {
	return MirrorOptions{GitBinary: "git", SSLVerify: true}
}

func (o MirrorOptions) normalized() MirrorOptions {
	if o.GitBinary == "" {
		o.GitBinary = "git"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Clone makes a bare copy of uri into path.
func Clone(ctx context.Context, uri, path string, opts MirrorOptions) (*Mirror, error) {
	opts = opts.normalized()

	args := []string{"clone", "--bare", uri, path}
	if !opts.SSLVerify {
		args = append(args, "-c", "http.sslVerify=false")
	}
	r := &runner{gitPath: opts.GitBinary, env: gitEnv(), logger: opts.Logger}
	if _, err := r.run(ctx, args); err != nil {
		return nil, err
	}
	opts.Logger.Debug("git repository cloned", "uri", uri, "path", path)

	return Open(uri, path, opts)
}

// Open attaches to an existing bare mirror.
func Open(uri, path string, opts MirrorOptions) (*Mirror, error) {
	opts = opts.normalized()

	if _, err := os.Stat(path); err != nil {
		return nil, &RepositoryError{
			Cause: fmt.Sprintf("directory '%s' for Git repository '%s' does not exist", path, uri),
			Err:   err,
		}
	}
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err != nil {
		opts.Logger.Warn("working directories are not supported; clone the repository as a bare mirror", "path", path)
		return nil, &RepositoryError{
			Cause: fmt.Sprintf("directory '%s' is not a Git mirror of repository '%s'", path, uri),
		}
	}

	return &Mirror{
		uri:       uri,
		path:      path,
		sslVerify: opts.SSLVerify,
		logger:    opts.Logger,
		git: &runner{
			gitPath: opts.GitBinary,
			dir:     path,
			env:     gitEnv(),
			logger:  opts.Logger,
		},
	}, nil
}

// URI returns the remote this mirror tracks.
func (m *Mirror) URI() string { return m.uri }

// Path returns the mirror directory.
func (m *Mirror) Path() string { return m.path }

// CountObjects returns the number of loose plus packed objects.
func (m *Mirror) CountObjects(ctx context.Context) (int, error) {
	stats, err := m.countObjects(ctx)
	if err != nil {
		return 0, err
	}
	count, ok := stats["count"]
	if !ok {
		return 0, &RepositoryError{Cause: "unable to parse 'count-objects' output; reason: 'count' entry not found"}
	}
	inPack, ok := stats["in-pack"]
	if !ok {
		return 0, &RepositoryError{Cause: "unable to parse 'count-objects' output; reason: 'in-pack' entry not found"}
	}
	n := count + inPack
	m.logger.Debug("git repository objects counted", "uri", m.uri, "objects", n)
	return n, nil
}

func (m *Mirror) countObjects(ctx context.Context) (map[string]int, error) {
	out, err := m.git.run(ctx, []string{"count-objects", "-v"})
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ": ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, &RepositoryError{Cause: "unable to parse 'count-objects' output", Err: err}
		}
		stats[key] = n
	}
	return stats, nil
}

// IsEmpty reports whether the mirror holds no objects.
func (m *Mirror) IsEmpty(ctx context.Context) (bool, error) {
	n, err := m.CountObjects(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// IsDetached reports whether HEAD is not a symbolic ref.
func (m *Mirror) IsDetached(ctx context.Context) (bool, error) {
	_, err := m.git.run(ctx, []string{"symbolic-ref", "HEAD"})
	if err == nil {
		return false, nil
	}
	if strings.Contains(err.Error(), "ref HEAD is not a symbolic ref") {
		return true, nil
	}
	return false, err
}

// HasAlternates reports whether the mirror borrows objects from another store.
func (m *Mirror) HasAlternates() bool {
	_, err := os.Stat(filepath.Join(m.path, "objects", "info", "alternates"))
	return err == nil
}

// HasLooseObjects reports whether any unpacked objects exist.
func (m *Mirror) HasLooseObjects(ctx context.Context) (bool, error) {
	stats, err := m.countObjects(ctx)
	if err != nil {
		return false, err
	}
	count, ok := stats["count"]
	if !ok {
		return false, &RepositoryError{Cause: "unexpected output format from 'git count-objects -v'"}
	}
	return count > 0, nil
}

// Update fetches every head from origin, overwriting local refs and
// pruning the ones gone upstream.
func (m *Mirror) Update(ctx context.Context) error {
	if _, err := m.git.run(ctx, []string{"fetch", "origin", "+refs/heads/*:refs/heads/*", "--prune"}); err != nil {
		return err
	}
	m.logger.Debug("git repository updated", "uri", m.uri, "path", m.path)
	return nil
}

// Log streams the commit log, oldest first, in the format Parser reads.
func (m *Mirror) Log(ctx context.Context, opts LogOptions) (LineStream, error) {
	if err := m.ensureReadable(ctx, "log"); err != nil {
		return nil, err
	}

	args := []string{"log", "--reverse", "--topo-order"}
	if m.HasAlternates() {
		args = append(args, "--alternate-refs")
	}
	args = append(args, prettyOutputOpts...)
	if !opts.Since.IsZero() {
		args = append(args, "--since="+opts.Since.UTC().Format(gitDateLayout))
	}
	if !opts.Until.IsZero() {
		args = append(args, "--until="+opts.Until.UTC().Format(gitDateLayout))
	}

	switch {
	case opts.Branches == nil:
		args = append(args, "--branches", "--tags", "--remotes=origin")
	case len(opts.Branches) == 0:
		args = append(args, "--max-count=0")
	default:
		args = append(args, headRefs(opts.Branches)...)
	}

	return m.git.stream(ctx, args)
}

// Show streams the given commits in the format Parser reads. An empty list
// shows the last commit.
func (m *Mirror) Show(ctx context.Context, commits []string) (LineStream, error) {
	if err := m.ensureReadable(ctx, "show"); err != nil {
		return nil, err
	}

	args := append([]string{"show"}, prettyOutputOpts...)
	args = append(args, commits...)
	return m.git.stream(ctx, args)
}

// RevList streams commit hashes in topological order.
func (m *Mirror) RevList(ctx context.Context, branches []string) (LineStream, error) {
	empty, err := m.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		m.logger.Warn("git repository is empty; unable to get the rev-list", "uri", m.uri)
		return nil, &EmptyRepositoryError{Repository: m.uri}
	}

	args := []string{"rev-list", "--topo-order"}
	switch {
	case branches == nil:
		args = append(args, "--branches", "--tags", "--remotes=origin")
	case len(branches) == 0:
		args = append(args, "--branches", "--tags", "--max-count=0")
	default:
		args = append(args, headRefs(branches)...)
	}
	return m.git.stream(ctx, args)
}

// ensureReadable fails with *EmptyRepositoryError when there is nothing to read.
func (m *Mirror) ensureReadable(ctx context.Context, op string) error {
	empty, err := m.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if empty && !m.HasAlternates() {
		m.logger.Warn("git repository is empty; unable to run "+op, "uri", m.uri)
		return &EmptyRepositoryError{Repository: m.uri}
	}
	return nil
}

// Branches lists the local head names, without the refs/heads/ prefix.
func (m *Mirror) Branches(ctx context.Context) ([]string, error) {
	refs, err := m.DiscoverRefs(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range refs {
		if name, ok := strings.CutPrefix(r.RefName, refsHeads); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func headRefs(branches []string) []string {
	out := make([]string, len(branches))
	for i, b := range branches {
		out[i] = refsHeads + b
	}
	return out
}

// packModTime is split out for sorting packs oldest first.
func packModTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}
