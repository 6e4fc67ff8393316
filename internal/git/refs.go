package git

import (
	"context"
	"strings"
)

const (
	refsHeads = "refs/heads/"
	refsTags  = "refs/tags/"
)

// DiscoverRefs lists the local heads and tags. An empty mirror fails with
// *EmptyRepositoryError because show-ref cannot run on it.
func (m *Mirror) DiscoverRefs(ctx context.Context) ([]Ref, error) {
	empty, err := m.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, &EmptyRepositoryError{Repository: m.uri}
	}

	// exit 1: no heads or tags
	out, err := m.git.run(ctx, []string{"show-ref", "--heads", "--tags"}, 1)
	if err != nil {
		return nil, err
	}
	return parseRefs(string(out), " "), nil
}

// DiscoverRemoteRefs lists the heads and tags of origin, including
// annotated tag peel entries ("<tag>^{}").
func (m *Mirror) DiscoverRemoteRefs(ctx context.Context) ([]Ref, error) {
	// exit 2: no matching refs
	out, err := m.git.run(ctx, []string{"ls-remote", "-h", "-t", "--exit-code", "origin"}, 2)
	if err != nil {
		return nil, err
	}
	return parseRefs(string(out), "\t"), nil
}

func parseRefs(out, sep string) []Ref {
	out = strings.TrimRight(out, "\r\n\t ")
	if out == "" {
		return nil
	}
	var refs []Ref
	for _, line := range strings.Split(out, "\n") {
		hash, name, ok := strings.Cut(line, sep)
		if !ok {
			continue
		}
		refs = append(refs, Ref{Hash: strings.TrimSpace(hash), RefName: strings.TrimSpace(name)})
	}
	return refs
}

// UpdateRef points ref.RefName at ref.Hash.
func (m *Mirror) UpdateRef(ctx context.Context, ref Ref) error {
	_, err := m.git.run(ctx, []string{"update-ref", ref.RefName, ref.Hash})
	return err
}

// DeleteRef removes ref.RefName.
func (m *Mirror) DeleteRef(ctx context.Context, ref Ref) error {
	_, err := m.git.run(ctx, []string{"update-ref", "-d", ref.RefName})
	return err
}

// isMirroredRef reports whether sync keeps name in step with the remote.
func isMirroredRef(name string) bool {
	return strings.HasPrefix(name, refsHeads) || strings.HasPrefix(name, refsTags)
}
