package extract

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/masmgr/githistory/internal/git"
)

// hasMeta reports whether a branch argument is a pattern rather than a name.
func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// expandBranches resolves doublestar patterns against the mirror's heads.
// Plain names pass through untouched, so a missing branch still reaches
// git and fails there. nil stays nil (every branch); a pattern list that
// matches nothing yields an empty, non-nil slice (no branch).
func expandBranches(ctx context.Context, repo git.Repository, patterns []string) ([]string, error) {
	if patterns == nil {
		return nil, nil
	}
	if !slices.ContainsFunc(patterns, hasMeta) {
		return patterns, nil
	}

	heads, err := repo.Branches(ctx)
	if err != nil {
		return nil, err
	}

	out := []string{}
	for _, p := range patterns {
		if !hasMeta(p) {
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
			continue
		}
		for _, h := range heads {
			ok, err := doublestar.Match(p, h)
			if err != nil {
				return nil, fmt.Errorf("invalid branch pattern %q: %w", p, err)
			}
			if ok && !slices.Contains(out, h) {
				out = append(out, h)
			}
		}
	}
	return out, nil
}
