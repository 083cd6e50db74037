package workspace

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/josephgoksu/AgentWing/internal/git"
)

// GitProvider allocates workspaces as detached git worktrees of one source
// repository. Worktrees share the object store with the source repository,
// so allocation is cheap even for large histories.
type GitProvider struct {
	repoPath string
	root     string
	client   *git.Client

	mu     sync.Mutex
	active map[string]Handle
}

// NewGitProvider creates a provider for the repository at repoPath. Worktrees
// are created under root; an empty root places them next to the repository.
func NewGitProvider(repoPath, root string) *GitProvider {
	return NewGitProviderWithClient(repoPath, root, git.NewClient(repoPath))
}

// NewGitProviderWithClient injects a git client (for testing).
func NewGitProviderWithClient(repoPath, root string, client *git.Client) *GitProvider {
	if root == "" {
		root = filepath.Join(repoPath, "..", filepath.Base(repoPath)+"-worktrees")
	}
	return &GitProvider{
		repoPath: repoPath,
		root:     root,
		client:   client,
		active:   make(map[string]Handle),
	}
}

// Allocate creates a detached worktree at the snapshot commit.
func (p *GitProvider) Allocate(baseCommit string) (Handle, error) {
	if baseCommit == "" {
		return Handle{}, allocationError(fmt.Errorf("empty base commit"))
	}
	if !p.client.IsRepository() {
		return Handle{}, allocationError(fmt.Errorf("%w: %s", git.ErrNotGitRepository, p.repoPath))
	}

	id := uuid.NewString()
	path := filepath.Join(p.root, id)
	if err := p.client.AddWorktree(path, baseCommit); err != nil {
		return Handle{}, allocationError(err)
	}

	h := Handle{ID: id, Path: path}
	p.mu.Lock()
	p.active[id] = h
	p.mu.Unlock()
	return h, nil
}

// Discard removes the worktree. Discarding an unknown handle is a no-op.
func (p *GitProvider) Discard(h Handle) error {
	p.mu.Lock()
	_, known := p.active[h.ID]
	delete(p.active, h.ID)
	p.mu.Unlock()
	if !known {
		return nil
	}

	if err := p.client.RemoveWorktree(h.Path); err != nil {
		// The directory may already be gone; prune the bookkeeping either way.
		_ = p.client.PruneWorktrees()
		return err
	}
	return nil
}

// Active returns the number of live workspaces.
func (p *GitProvider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
