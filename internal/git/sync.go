package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp/capability"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp/sideband"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
)

// Sync fetches the objects origin has and the mirror lacks, mirrors the
// remote heads and tags, and returns the hashes of the newly received
// commits, oldest first.
//
// Negotiation is not persisted between calls: every local head is offered
// once as a have and the server computes the pack from that alone.
func (m *Mirror) Sync(ctx context.Context) ([]string, error) {
	packName, refs, err := m.fetchPack(ctx)
	if err != nil {
		return nil, err
	}

	commits := []string{}
	if packName != "" {
		commits, err = m.commitsFromPack(ctx, packName)
		if err != nil {
			return nil, err
		}
	} else {
		m.logger.Debug("git repository does not have any new object", "uri", m.uri, "path", m.path)
	}

	if err := m.updateReferences(ctx, refs); err != nil {
		return nil, err
	}

	m.logger.Debug("git repository is synced", "uri", m.uri, "path", m.path, "commits", len(commits))
	return commits, nil
}

// determineWants returns the remote ref hashes that no local ref points to.
func (m *Mirror) determineWants(ctx context.Context, local []Ref) ([]plumbing.Hash, error) {
	remote, err := m.DiscoverRemoteRefs(ctx)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(local))
	for _, r := range local {
		if !r.IsPeeled() {
			have[r.Hash] = true
		}
	}

	seen := make(map[string]bool)
	var wants []plumbing.Hash
	for _, r := range remote {
		if r.IsPeeled() || have[r.Hash] || seen[r.Hash] {
			continue
		}
		if !plumbing.IsHash(r.Hash) {
			return nil, &RepositoryError{Cause: fmt.Sprintf("invalid hash %q for remote ref %s", r.Hash, r.RefName)}
		}
		seen[r.Hash] = true
		wants = append(wants, plumbing.NewHash(r.Hash))
	}
	return wants, nil
}

// fetchPack runs an upload-pack exchange with origin and indexes the
// received pack. It returns the new pack name ("" when nothing arrived)
// and the refs origin advertised.
func (m *Mirror) fetchPack(ctx context.Context) (string, []Ref, error) {
	local, err := m.DiscoverRefs(ctx)
	if err != nil {
		return "", nil, err
	}

	ep, err := transport.NewEndpoint(m.uri)
	if err != nil {
		return "", nil, &RepositoryError{Cause: "invalid remote " + m.uri, Err: err}
	}
	ep.InsecureSkipTLS = !m.sslVerify

	cli, err := client.NewClient(ep)
	if err != nil {
		return "", nil, &RepositoryError{Cause: "no transport for " + m.uri, Err: err}
	}
	session, err := cli.NewUploadPackSession(ep, nil)
	if err != nil {
		return "", nil, &RepositoryError{Cause: "upload-pack session", Err: err}
	}
	defer session.Close()

	adv, err := session.AdvertisedReferencesContext(ctx)
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, &RepositoryError{Cause: "reference discovery", Err: err}
	}
	refs := advertisedRefs(adv)

	wants, err := m.determineWants(ctx, local)
	if err != nil {
		return "", nil, err
	}
	if len(wants) == 0 {
		return "", refs, nil
	}

	req := packp.NewUploadPackRequestFromCapabilities(adv.Capabilities)
	if adv.Capabilities.Supports(capability.NoProgress) {
		if err := req.Capabilities.Set(capability.NoProgress); err != nil {
			return "", nil, err
		}
	}
	req.Wants = wants
	walker := newGraphWalker(local)
	for h, ok := walker.Next(); ok; h, ok = walker.Next() {
		req.Haves = append(req.Haves, h)
	}

	resp, err := session.UploadPack(ctx, req)
	if errors.Is(err, transport.ErrEmptyUploadPackRequest) {
		return "", refs, nil
	}
	if err != nil {
		return "", nil, &RepositoryError{Cause: "upload-pack", Err: err}
	}
	defer resp.Close()

	pack := bufio.NewReader(demux(req.Capabilities, resp))
	if _, err := pack.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return "", refs, nil
		}
		return "", nil, &RepositoryError{Cause: "reading pack", Err: err}
	}

	name, err := m.indexPack(ctx, pack)
	if err != nil {
		return "", nil, err
	}
	return name, refs, nil
}

// demux strips the side-band framing when it was negotiated.
func demux(caps *capability.List, r io.Reader) io.Reader {
	switch {
	case caps.Supports(capability.Sideband64k):
		return sideband.NewDemuxer(sideband.Sideband64k, r)
	case caps.Supports(capability.Sideband):
		return sideband.NewDemuxer(sideband.Sideband, r)
	default:
		return r
	}
}

// advertisedRefs flattens the advertisement; peeled tags are reported
// as "<tag>^{}" entries.
func advertisedRefs(adv *packp.AdvRefs) []Ref {
	refs := make([]Ref, 0, len(adv.References)+len(adv.Peeled))
	for name, h := range adv.References {
		refs = append(refs, Ref{Hash: h.String(), RefName: name})
	}
	for name, h := range adv.Peeled {
		refs = append(refs, Ref{Hash: h.String(), RefName: name + "^{}"})
	}
	return refs
}

// indexPack stores a (possibly thin) pack read from r and returns its name.
func (m *Mirror) indexPack(ctx context.Context, r io.Reader) (string, error) {
	out, err := m.git.runInput(ctx, r, []string{"index-pack", "--stdin", "--fix-thin"})
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		kind, name, ok := strings.Cut(line, "\t")
		if ok && (kind == "pack" || kind == "keep") && plumbing.IsHash(name) {
			return name, nil
		}
	}
	return "", &RepositoryError{Cause: fmt.Sprintf("unexpected index-pack output %q", strings.TrimSpace(string(out)))}
}

// updateReferences makes the local heads and tags match refs: local heads
// absent remotely are deleted and changed refs are moved. Local tags are
// never deleted. Peel entries and
// refs outside refs/heads and refs/tags are left alone. A ref that cannot
// be updated is logged and skipped.
func (m *Mirror) updateReferences(ctx context.Context, refs []Ref) error {
	remote := make(map[string]bool, len(refs))
	for _, r := range refs {
		remote[r.RefName] = true
	}

	local, err := m.DiscoverRefs(ctx)
	if err != nil {
		return err
	}
	for _, old := range local {
		if !strings.HasPrefix(old.RefName, refsHeads) || remote[old.RefName] {
			continue
		}
		m.applyRef(ctx, old, true)
	}

	local, err = m.DiscoverRefs(ctx)
	if err != nil {
		return err
	}
	current := make(map[string]string, len(local))
	for _, r := range local {
		current[r.RefName] = r.Hash
	}

	for _, r := range refs {
		switch {
		case r.IsPeeled():
			m.logger.Debug("annotated tag ignored for updating in sync process", "ref", r.RefName)
		case !isMirroredRef(r.RefName):
			m.logger.Debug("reference not needed; ignored for updating in sync process", "ref", r.RefName)
		case current[r.RefName] == r.Hash:
			m.logger.Debug("reference already up to date in sync process", "ref", r.RefName)
		default:
			m.applyRef(ctx, r, false)
		}
	}

	_, err = m.git.run(ctx, []string{"remote", "prune", "origin"})
	return err
}

func (m *Mirror) applyRef(ctx context.Context, r Ref, remove bool) {
	action := "updated to " + r.Hash
	var err error
	if remove {
		action = "deleted"
		err = m.DeleteRef(ctx, r)
	} else {
		err = m.UpdateRef(ctx, r)
	}
	if err != nil {
		m.logger.Warn("git ref could not be "+action+" during sync process; skipped",
			"ref", r.RefName, "uri", m.uri, "path", m.path, "error", err)
		return
	}
	m.logger.Debug("git ref "+action, "ref", r.RefName, "uri", m.uri, "path", m.path)
}

// graphWalker offers every local head once, last discovered first.
type graphWalker struct {
	heads []plumbing.Hash
}

func newGraphWalker(local []Ref) *graphWalker {
	w := &graphWalker{}
	for _, r := range local {
		if strings.HasPrefix(r.RefName, refsHeads) && plumbing.IsHash(r.Hash) {
			w.heads = append(w.heads, plumbing.NewHash(r.Hash))
		}
	}
	return w
}

// Next pops the next head to offer.
func (w *graphWalker) Next() (plumbing.Hash, bool) {
	if len(w.heads) == 0 {
		return plumbing.ZeroHash, false
	}
	h := w.heads[len(w.heads)-1]
	w.heads = w.heads[:len(w.heads)-1]
	return h, true
}
