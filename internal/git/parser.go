package git

import (
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultTrailers are the message trailers collected when no whitelist is given.
var DefaultTrailers = []string{"Signed-off-by"}

var (
	commitPattern  = regexp.MustCompile(`^commit[ \t]([a-f0-9]{40})(?:[ \t]([a-f0-9][a-f0-9 \t]+))?(?:[ \t]\((.+)\))?$`)
	headerPattern  = regexp.MustCompile(`^([a-zA-Z0-9\-]+):[ \t]+(.+)$`)
	messagePattern = regexp.MustCompile(`^\s{4}(.*)$`)
	actionPattern  = regexp.MustCompile(`^(:+)((?:\d{6}[ \t])+)((?:[a-f0-9]+\.{0,3}[ \t])+)([^\t]+)\t+([^\t]+)(?:\t+(.+))?$`)
	statsPattern   = regexp.MustCompile(`^(\d+|-)\t+(\d+|-)\t+(.+)$`)
)

type parserState int

const (
	stateInit parserState = iota
	stateCommit
	stateHeader
	stateMessage
	stateFile
)

func (s parserState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateCommit:
		return "commit"
	case stateHeader:
		return "header"
	case stateMessage:
		return "message"
	case stateFile:
		return "file"
	default:
		return "unknown"
	}
}

// Parser turns the output of
//
//	git log --raw --numstat --pretty=fuller --decorate=full --parents -M -C -c
//
// into Commit records. A record is emitted when the next "commit" line is
// seen or the stream ends. Malformed message and file lines are skipped;
// a malformed commit or header line stops the parser for good.
type Parser struct {
	stream   LineStream
	trailers map[string]bool
	logger   *slog.Logger

	state      parserState
	nline      int
	commit     *Commit
	files      map[string]*FileEntry
	hasMessage bool
	err        error
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTrailers replaces the trailer whitelist.
func WithTrailers(names ...string) ParserOption {
	return func(p *Parser) {
		p.trailers = make(map[string]bool, len(names))
		for _, n := range names {
			p.trailers[n] = true
		}
	}
}

// WithParserLogger sets the logger for skipped-line diagnostics.
func WithParserLogger(l *slog.Logger) ParserOption {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser creates a parser over stream.
func NewParser(stream LineStream, opts ...ParserOption) *Parser {
	p := &Parser{
		stream: stream,
		logger: slog.Default(),
		state:  stateInit,
		files:  make(map[string]*FileEntry),
	}
	WithTrailers(DefaultTrailers...)(p)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next commit, or io.EOF when the stream is exhausted.
// Errors are sticky.
func (p *Parser) Next() (*Commit, error) {
	for {
		if p.err != nil {
			return nil, p.err
		}

		line, err := p.stream.Next()
		if errors.Is(err, io.EOF) {
			p.err = io.EOF
			if p.commit != nil {
				return p.build(), nil
			}
			return nil, io.EOF
		}
		if err != nil {
			p.err = err
			return nil, err
		}
		p.nline++

		// a commit completed by this line is returned before any error it raised
		if c := p.feed(line); c != nil {
			return c, nil
		}
	}
}

// Close closes the underlying stream.
func (p *Parser) Close() error {
	if p.err == nil {
		p.err = io.EOF
	}
	return p.stream.Close()
}

// ParseAll drains the parser and closes it.
func (p *Parser) ParseAll() ([]*Commit, error) {
	defer p.Close()
	var out []*Commit
	for {
		c, err := p.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}

// feed runs line through the state machine until some state consumes it.
// A grammar error is recorded in p.err.
func (p *Parser) feed(line string) *Commit {
	var emitted *Commit
	for consumed := false; !consumed; {
		next, ok, err := p.step(line)
		if err != nil {
			p.err = err
			return emitted
		}
		p.state, consumed = next, ok
		if p.state == stateCommit && p.commit != nil {
			emitted = p.build()
		}
	}
	return emitted
}

func (p *Parser) step(line string) (parserState, bool, error) {
	switch p.state {
	case stateInit:
		return stateCommit, line == "", nil
	case stateCommit:
		return p.handleCommit(line)
	case stateHeader:
		return p.handleHeader(line)
	case stateMessage:
		return p.handleMessage(line)
	case stateFile:
		return p.handleFile(line)
	default:
		return p.state, false, &ParseError{Line: p.nline, Cause: "unknown parser state " + p.state.String()}
	}
}

func (p *Parser) handleCommit(line string) (parserState, bool, error) {
	m := commitPattern.FindStringSubmatch(line)
	if m == nil {
		return stateCommit, false, &ParseError{Line: p.nline, Cause: "commit expected"}
	}
	p.commit = &Commit{
		Hash:    m[1],
		Parents: splitList(m[2], " "),
		Refs:    splitList(m[3], ","),
		Headers: make(map[string]string),
	}
	return stateHeader, true, nil
}

func (p *Parser) handleHeader(line string) (parserState, bool, error) {
	if line == "" {
		return stateMessage, true, nil
	}
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return stateHeader, false, &ParseError{Line: p.nline, Cause: "invalid header format"}
	}
	p.commit.Headers[m[1]] = m[2]
	return stateHeader, true, nil
}

func (p *Parser) handleMessage(line string) (parserState, bool, error) {
	if line == "" {
		return stateFile, true, nil
	}
	m := messagePattern.FindStringSubmatch(line)
	if m == nil {
		p.logger.Debug("invalid message format; skipping", "line", p.nline)
		return stateFile, false, nil
	}

	msg := m[1]
	if p.hasMessage {
		p.commit.Message += "\n"
	}
	p.commit.Message += msg
	p.hasMessage = true

	p.handleTrailer(msg)
	return stateMessage, true, nil
}

func (p *Parser) handleTrailer(msg string) {
	m := headerPattern.FindStringSubmatch(msg)
	if m == nil {
		return
	}
	name, value := m[1], m[2]
	if !p.trailers[name] {
		p.logger.Debug("trailer is not collected; skipping", "trailer", name, "line", p.nline)
		return
	}
	if p.commit.Trailers == nil {
		p.commit.Trailers = make(map[string][]string)
	}
	p.commit.Trailers[name] = append(p.commit.Trailers[name], value)
}

func (p *Parser) handleFile(line string) (parserState, bool, error) {
	if line == "" {
		return stateCommit, true, nil
	}
	if m := actionPattern.FindStringSubmatch(line); m != nil {
		p.handleAction(m)
		return stateFile, true, nil
	}
	if m := statsPattern.FindStringSubmatch(line); m != nil {
		p.handleStats(m)
		return stateFile, true, nil
	}
	p.logger.Debug("invalid action format; skipping", "line", p.nline)
	return stateCommit, false, nil
}

func (p *Parser) handleAction(m []string) {
	name := m[5]
	entry := p.entry(name)
	entry.Modes = splitList(m[2], " ")
	entry.Indexes = splitList(m[3], " ")
	entry.Action = m[4]
	entry.NewFile = m[6]
}

func (p *Parser) handleStats(m []string) {
	entry := p.entry(oldFilePath(m[3]))
	entry.Added = m[1]
	entry.Removed = m[2]
}

func (p *Parser) entry(name string) *FileEntry {
	e, ok := p.files[name]
	if !ok {
		e = &FileEntry{File: name}
		p.files[name] = e
	}
	return e
}

// build finalizes the open commit and resets the accumulators.
func (p *Parser) build() *Commit {
	c := p.commit
	c.Files = sortedFiles(p.files)

	p.commit = nil
	p.files = make(map[string]*FileEntry)
	p.hasMessage = false

	p.logger.Debug("commit parsed", "commit", c.Hash)
	return c
}

func splitList(data, sep string) []string {
	data = strings.TrimSpace(data)
	if data == "" {
		return []string{}
	}
	parts := strings.Split(data, sep)
	for i, s := range parts {
		parts[i] = strings.TrimSpace(s)
	}
	return parts
}
