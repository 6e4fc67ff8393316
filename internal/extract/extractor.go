package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/masmgr/githistory/internal/git"
)

// Mode selects how commits are obtained from a mirror.
type Mode int

const (
	// ModeFull updates the mirror and logs the requested window.
	ModeFull Mode = iota
	// ModeNoUpdate logs the window without touching the remote.
	ModeNoUpdate
	// ModeLatest syncs and returns only the commits received. A mirror
	// that does not exist yet falls back to ModeFull.
	ModeLatest
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeNoUpdate:
		return "no-update"
	case ModeLatest:
		return "latest"
	default:
		return "unknown"
	}
}

// Target is what to read history from.
type Target struct {
	URI string
	// Path is the mirror directory, or a captured log file when it
	// names a regular file.
	Path string
}

// Options bounds one extraction.
type Options struct {
	Mode  Mode
	Since time.Time
	Until time.Time
	// Branches are branch names or doublestar patterns. nil fetches
	// every branch; an empty slice fetches nothing.
	Branches []string
	// RecoveryCommit resumes from this commit, inclusive. The mirror is
	// never updated in recovery.
	RecoveryCommit string
}

// OpenFunc returns the mirror at path, cloning uri into it when missing.
type OpenFunc func(ctx context.Context, uri, path string) (git.Repository, error)

// MirrorOpener is the OpenFunc backed by real git mirrors.
func MirrorOpener(opts git.MirrorOptions) OpenFunc {
	return func(ctx context.Context, uri, path string) (git.Repository, error) {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return git.Clone(ctx, uri, path, opts)
		}
		return git.Open(uri, path, opts)
	}
}

// Extractor picks the mirror operation for a target and mode and threads
// its output through a git.Parser.
type Extractor struct {
	open     OpenFunc
	trailers []string
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOpener replaces the mirror opener.
func WithOpener(fn OpenFunc) Option {
	return func(e *Extractor) { e.open = fn }
}

// WithTrailers sets the trailer whitelist handed to the parser.
func WithTrailers(names ...string) Option {
	return func(e *Extractor) { e.trailers = names }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor that opens mirrors with mirrorOpts.
func New(mirrorOpts git.MirrorOptions, opts ...Option) *Extractor {
	e := &Extractor{
		open:     MirrorOpener(mirrorOpts),
		trailers: git.DefaultTrailers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultMirrorPath is where the mirror of uri lives under basePath.
func DefaultMirrorPath(basePath, uri string) string {
	return filepath.Join(basePath, strings.TrimLeft(uri, "/")) + "-git"
}

// Extract starts reading commits from target. The returned Records must be
// closed. An empty repository yields no records and no error.
func (e *Extractor) Extract(ctx context.Context, target Target, opts Options) (*Records, error) {
	if opts.RecoveryCommit != "" {
		return e.recover(ctx, target, opts)
	}
	if isLogFile(target.Path) {
		return e.fromLogFile(target)
	}
	return e.fromMirror(ctx, target, opts)
}

// Each extracts and calls fn for every record, in order.
func (e *Extractor) Each(ctx context.Context, target Target, opts Options, fn func(*git.Commit) error) (int, error) {
	records, err := e.Extract(ctx, target, opts)
	if err != nil {
		return 0, err
	}
	defer records.Close()

	for {
		c, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records.Count(), err
		}
		if err := fn(c); err != nil {
			return records.Count(), err
		}
	}
	e.logger.Info("fetch process completed", "uri", target.URI, "commits", records.Count())
	return records.Count(), nil
}

func (e *Extractor) fromLogFile(target Target) (*Records, error) {
	e.logger.Info("fetching commits from log file", "uri", target.URI, "path", target.Path)
	lr, err := git.OpenLogFile(target.Path)
	if err != nil {
		return nil, err
	}
	return e.records(lr), nil
}

func (e *Extractor) fromMirror(ctx context.Context, target Target, opts Options) (*Records, error) {
	_, statErr := os.Stat(target.Path)
	latest := opts.Mode == ModeLatest && statErr == nil

	repo, err := e.open(ctx, target.URI, target.Path)
	if err != nil {
		return nil, err
	}
	if latest {
		return e.fetchLatest(ctx, target, repo)
	}
	return e.fetchWindow(ctx, target, repo, opts, opts.Mode == ModeNoUpdate)
}

func (e *Extractor) fetchWindow(ctx context.Context, target Target, repo git.Repository, opts Options, noUpdate bool) (*Records, error) {
	e.logger.Info("fetching commits",
		"uri", target.URI, "from", opts.Since, "to", opts.Until, "branches", branchesText(opts.Branches))

	if !noUpdate {
		if err := repo.Update(ctx); err != nil {
			return nil, err
		}
	}

	branches, err := expandBranches(ctx, repo, opts.Branches)
	if git.IsEmptyRepository(err) {
		return emptyRecords(), nil
	}
	if err != nil {
		return nil, err
	}

	stream, err := repo.Log(ctx, git.LogOptions{Since: opts.Since, Until: opts.Until, Branches: branches})
	if git.IsEmptyRepository(err) {
		return emptyRecords(), nil
	}
	if err != nil {
		return nil, err
	}
	return e.records(stream), nil
}

func (e *Extractor) fetchLatest(ctx context.Context, target Target, repo git.Repository) (*Records, error) {
	e.logger.Info("fetching latest commits", "uri", target.URI)

	hashes, err := repo.Sync(ctx)
	if git.IsEmptyRepository(err) {
		return emptyRecords(), nil
	}
	if err != nil {
		return nil, err
	}
	return e.show(ctx, repo, hashes)
}

// recover resumes from opts.RecoveryCommit. A mirror with several packs, or
// one pack next to loose objects, kept the previous run's objects in its
// newest packs, so only those are shown; otherwise the whole window is
// logged again without updating.
func (e *Extractor) recover(ctx context.Context, target Target, opts Options) (*Records, error) {
	e.logger.Info("recovering fetch", "uri", target.URI, "commit", opts.RecoveryCommit)

	var records *Records
	if isLogFile(target.Path) {
		r, err := e.fromLogFile(target)
		if err != nil {
			return nil, err
		}
		records = r
	} else {
		repo, err := e.open(ctx, target.URI, target.Path)
		if err != nil {
			return nil, err
		}
		r, err := e.recoverFromMirror(ctx, target, repo, opts)
		if err != nil {
			return nil, err
		}
		records = r
	}
	records.from = opts.RecoveryCommit
	return records, nil
}

func (e *Extractor) recoverFromMirror(ctx context.Context, target Target, repo git.Repository, opts Options) (*Records, error) {
	packs, err := repo.PacksByDate()
	if err != nil {
		return nil, err
	}

	loose := false
	if len(packs) == 1 {
		if loose, err = repo.HasLooseObjects(ctx); err != nil {
			return nil, err
		}
	}
	if len(packs) == 0 || (len(packs) == 1 && !loose) {
		return e.fetchWindow(ctx, target, repo, opts, true)
	}

	hashes, err := repo.CommitsFromPacks(ctx, packs, opts.RecoveryCommit)
	if err != nil {
		return nil, err
	}
	return e.show(ctx, repo, hashes)
}

// show parses the given commits. No hashes means no records: git show
// would print the last commit instead.
func (e *Extractor) show(ctx context.Context, repo git.Repository, hashes []string) (*Records, error) {
	if len(hashes) == 0 {
		return emptyRecords(), nil
	}
	stream, err := repo.Show(ctx, hashes)
	if git.IsEmptyRepository(err) {
		return emptyRecords(), nil
	}
	if err != nil {
		return nil, err
	}
	return e.records(stream), nil
}

func (e *Extractor) records(stream git.LineStream) *Records {
	return &Records{
		parser: git.NewParser(stream, git.WithTrailers(e.trailers...), git.WithParserLogger(e.logger)),
	}
}

func isLogFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func branchesText(branches []string) string {
	switch {
	case branches == nil:
		return "all"
	case len(branches) == 0:
		return "no"
	default:
		return strings.Join(branches, ", ")
	}
}

// Records yields commits in the order the parser produces them.
type Records struct {
	parser *git.Parser
	from   string
	found  bool
	count  int
}

func emptyRecords() *Records {
	return &Records{}
}

// Next returns the next commit, or io.EOF at the end.
func (r *Records) Next() (*git.Commit, error) {
	if r.parser == nil {
		return nil, io.EOF
	}
	for {
		c, err := r.parser.Next()
		if err != nil {
			return nil, err
		}
		if r.from != "" && !r.found {
			if c.Hash != r.from {
				continue
			}
			r.found = true
		}
		r.count++
		return c, nil
	}
}

// Count is the number of records returned so far.
func (r *Records) Count() int { return r.count }

// Close stops the underlying git process, if any.
func (r *Records) Close() error {
	if r.parser == nil {
		return nil
	}
	if err := r.parser.Close(); err != nil {
		return fmt.Errorf("close records: %w", err)
	}
	return nil
}
