package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
)

// runner executes git in a fixed directory with a sanitized environment.
type runner struct {
	gitPath string
	dir     string
	env     []string
	logger  *slog.Logger
}

// gitEnv builds the environment every git child runs with.
func gitEnv() []string {
	return []string{
		"LANG=C",
		"PAGER=",
		"GIT_TERMINAL_PROMPT=0",
		"HTTP_PROXY=" + os.Getenv("HTTP_PROXY"),
		"HTTPS_PROXY=" + os.Getenv("HTTPS_PROXY"),
		"NO_PROXY=" + os.Getenv("NO_PROXY"),
		"HOME=" + os.Getenv("HOME"),
		"PATH=" + os.Getenv("PATH"),
	}
}

func (r *runner) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.dir
	cmd.Env = r.env
	return cmd
}

// run executes git and returns its stdout. A non-zero exit fails with a
// *RepositoryError unless its code is listed in ignored.
func (r *runner) run(ctx context.Context, args []string, ignored ...int) ([]byte, error) {
	return r.runInput(ctx, nil, args, ignored...)
}

// runInput is run with stdin fed from in.
func (r *runner) runInput(ctx context.Context, in io.Reader, args []string, ignored ...int) ([]byte, error) {
	r.logger.Debug("running git command", "args", args, "dir", r.dir)

	var stdout, stderr bytes.Buffer
	cmd := r.command(ctx, args)
	cmd.Stdin = in
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &RepositoryError{Cause: fmt.Sprintf("git command - %s", strings.Join(args, " ")), Err: err}
		}
		if !slices.Contains(ignored, exitErr.ExitCode()) {
			return nil, &RepositoryError{
				Cause: fmt.Sprintf("git command - %s", strings.TrimSpace(stderr.String())),
			}
		}
	}
	if stderr.Len() > 0 {
		r.logger.Debug("git stderr", "output", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// stream starts git and returns its stdout as a LineStream. The process is
// bound to a context derived from ctx; closing the stream kills and reaps it.
func (r *runner) stream(ctx context.Context, args []string) (*commandStream, error) {
	r.logger.Debug("running git command", "args", args, "dir", r.dir)

	ctx, cancel := context.WithCancel(ctx)
	cmd := r.command(ctx, args)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &RepositoryError{Cause: "git command - stdout pipe", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, &RepositoryError{Cause: "git command - stderr pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &RepositoryError{Cause: fmt.Sprintf("git command - %s", strings.Join(args, " ")), Err: err}
	}

	s := &commandStream{
		cmd:     cmd,
		cancel:  cancel,
		lines:   NewLineReader(stdout),
		drained: make(chan struct{}),
		logger:  r.logger,
	}
	go s.drainStderr(stderr)
	return s, nil
}

// commandStream reads a child's stdout line by line while a goroutine
// drains its stderr, keeping the last non-empty line as failure cause.
type commandStream struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	lines   *LineReader
	drained chan struct{}
	logger  *slog.Logger

	lastErrLine string
	once        sync.Once
	err         error
}

var _ LineStream = (*commandStream)(nil)

func (s *commandStream) drainStderr(r io.Reader) {
	defer close(s.drained)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if s.lastErrLine != "" {
			s.logger.Debug("git stderr", "line", s.lastErrLine)
		}
		s.lastErrLine = line
	}
	// keep reading so the child never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

// Next returns the next stdout line. After the last line it waits for the
// process and returns io.EOF, or a *RepositoryError on a non-zero exit.
func (s *commandStream) Next() (string, error) {
	line, err := s.lines.Next()
	if err == nil {
		return line, nil
	}
	if errors.Is(err, io.EOF) {
		if werr := s.wait(); werr != nil {
			return "", werr
		}
		return "", io.EOF
	}
	s.Close()
	return "", &RepositoryError{Cause: "git command - reading output", Err: err}
}

func (s *commandStream) wait() error {
	s.once.Do(func() {
		<-s.drained
		err := s.cmd.Wait()
		s.cancel()
		if err == nil {
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.err = &RepositoryError{
				Cause: fmt.Sprintf("git command - %s (return code: %d)", s.lastErrLine, exitErr.ExitCode()),
			}
			return
		}
		s.err = &RepositoryError{Cause: "git command", Err: err}
	})
	return s.err
}

// Close kills the child if it is still running and reaps it.
func (s *commandStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.drained
		_ = s.cmd.Wait()
		s.err = io.EOF
	})
	// Wait already closed the pipe.
	_ = s.lines.Close()
	return nil
}
