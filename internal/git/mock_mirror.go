package git

import (
	"context"
	"slices"
)

// MockMirror is a test double for Mirror.
// It serves predefined log text and hashes without touching git.
type MockMirror struct {
	LogLines    []string
	ShowLines   []string
	RevHashes   []string
	SyncHashes  []string
	BranchNames []string
	Packs       []string
	PackCommits map[string][]string
	Loose       bool
	Error       error

	// Recorded calls.
	Updated     int
	Synced      int
	LogOpts     []LogOptions
	ShowCalls   [][]string
	RevBranches [][]string
}

// NewMockMirror creates a MockMirror whose Log and Show return lines.
func NewMockMirror(lines []string, err error) *MockMirror {
	return &MockMirror{
		LogLines:  lines,
		ShowLines: lines,
		Error:     err,
	}
}

func (m *MockMirror) Update(_ context.Context) error {
	m.Updated++
	return m.Error
}

func (m *MockMirror) Sync(_ context.Context) ([]string, error) {
	m.Synced++
	if m.Error != nil {
		return nil, m.Error
	}
	return slices.Clone(m.SyncHashes), nil
}

func (m *MockMirror) Log(_ context.Context, opts LogOptions) (LineStream, error) {
	m.LogOpts = append(m.LogOpts, opts)
	if m.Error != nil {
		return nil, m.Error
	}
	return NewSliceStream(m.LogLines), nil
}

func (m *MockMirror) Show(_ context.Context, commits []string) (LineStream, error) {
	m.ShowCalls = append(m.ShowCalls, slices.Clone(commits))
	if m.Error != nil {
		return nil, m.Error
	}
	return NewSliceStream(m.ShowLines), nil
}

func (m *MockMirror) RevList(_ context.Context, branches []string) (LineStream, error) {
	m.RevBranches = append(m.RevBranches, branches)
	if m.Error != nil {
		return nil, m.Error
	}
	return NewSliceStream(m.RevHashes), nil
}

func (m *MockMirror) Branches(_ context.Context) ([]string, error) {
	return m.BranchNames, m.Error
}

func (m *MockMirror) PacksByDate() ([]string, error) {
	return m.Packs, m.Error
}

func (m *MockMirror) HasLooseObjects(_ context.Context) (bool, error) {
	return m.Loose, m.Error
}

func (m *MockMirror) CommitsFromPacks(_ context.Context, packs []string, fromCommit string) ([]string, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	var out []string
	found := fromCommit == ""
	for _, p := range packs {
		for _, c := range m.PackCommits[p] {
			if c == fromCommit {
				found = true
			}
			if found {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// Compile-time interface conformance check.
var _ Repository = (*MockMirror)(nil)
