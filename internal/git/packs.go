package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
)

// PacksByDate lists the pack names under objects/pack, oldest first.
// A name is the hash part of "pack-<hash>.idx".
func (m *Mirror) PacksByDate() ([]string, error) {
	dir := filepath.Join(m.path, "objects", "pack")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &RepositoryError{Cause: "unable to list packs", Err: err}
	}

	type pack struct {
		name  string
		mtime time.Time
	}
	var packs []pack
	for _, e := range entries {
		name, ok := packName(e.Name())
		if !ok {
			continue
		}
		mtime, err := packModTime(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, &RepositoryError{Cause: "unable to stat pack " + e.Name(), Err: err}
		}
		packs = append(packs, pack{name: name, mtime: mtime})
	}

	sort.SliceStable(packs, func(i, j int) bool {
		if packs[i].mtime.Equal(packs[j].mtime) {
			return packs[i].name < packs[j].name
		}
		return packs[i].mtime.Before(packs[j].mtime)
	})

	out := make([]string, len(packs))
	for i, p := range packs {
		out[i] = p.name
	}
	return out, nil
}

func packName(file string) (string, bool) {
	if !strings.HasSuffix(file, ".idx") {
		return "", false
	}
	base := strings.SplitN(file, ".", 2)[0]
	_, name, ok := strings.Cut(base, "-")
	return name, ok && name != ""
}

// CommitsFromPacks returns the commits of packs, in pack order and oldest
// first within each pack, starting at fromCommit. Nothing is returned if
// fromCommit is not found. An empty fromCommit returns every commit.
func (m *Mirror) CommitsFromPacks(ctx context.Context, packs []string, fromCommit string) ([]string, error) {
	var hashes []string
	found := fromCommit == ""
	for _, p := range packs {
		commits, err := m.commitsFromPack(ctx, p)
		if err != nil {
			return nil, err
		}
		if !found {
			i := slices.Index(commits, fromCommit)
			if i < 0 {
				continue
			}
			found = true
			commits = commits[i:]
		}
		hashes = append(hashes, commits...)
	}
	return hashes, nil
}

// commitsFromPack lists the commits stored in a pack, oldest first.
func (m *Mirror) commitsFromPack(ctx context.Context, name string) ([]string, error) {
	idx := filepath.Join("objects", "pack", fmt.Sprintf("pack-%s.idx", name))
	out, err := m.git.run(ctx, []string{"verify-pack", "-v", idx})
	if err != nil {
		return nil, err
	}

	commits := []string{}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[1] == "commit" {
			commits = append(commits, fields[0])
		}
	}
	// packs list commits newest first
	slices.Reverse(commits)
	return commits, nil
}
