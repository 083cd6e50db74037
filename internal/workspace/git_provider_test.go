package workspace

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/josephgoksu/AgentWing/internal/git"
	"github.com/josephgoksu/AgentWing/types"
)

// scriptCommander answers git invocations from a response table, recording
// every call.
type scriptCommander struct {
	mu        sync.Mutex
	calls     [][]string
	responses map[string]error
}

func (c *scriptCommander) Run(name string, args ...string) (string, error) {
	return c.RunInDir("", name, args...)
}

func (c *scriptCommander) RunInDir(dir, name string, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string{name}, args...))

	for prefix, err := range c.responses {
		if strings.HasPrefix(name+" "+strings.Join(args, " "), prefix) {
			return "", err
		}
	}
	return "", nil
}

func newProvider(responses map[string]error) (*GitProvider, *scriptCommander) {
	cmd := &scriptCommander{responses: responses}
	client := git.NewClientWithCommander("/repo", cmd)
	return NewGitProviderWithClient("/repo", "/scratch", client), cmd
}

func (c *scriptCommander) count(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if strings.HasPrefix(strings.Join(call, " "), prefix) {
			n++
		}
	}
	return n
}

func TestGitProviderAllocateAndDiscard(t *testing.T) {
	p, cmd := newProvider(nil)

	h, err := p.Allocate("abc123")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if h.ID == "" || !strings.HasPrefix(h.Path, "/scratch/") {
		t.Fatalf("handle = %+v", h)
	}
	if p.Active() != 1 {
		t.Fatalf("active = %d, want 1", p.Active())
	}
	if cmd.count("git worktree add --detach") != 1 {
		t.Fatal("worktree add was not invoked")
	}

	if err := p.Discard(h); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if p.Active() != 0 {
		t.Fatalf("active = %d after discard, want 0", p.Active())
	}
	if cmd.count("git worktree remove") != 1 {
		t.Fatal("worktree remove was not invoked")
	}
}

func TestGitProviderAllocateFailsOutsideRepository(t *testing.T) {
	p, _ := newProvider(map[string]error{
		"git rev-parse --is-inside-work-tree": errors.New("fatal: not a git repository"),
	})

	_, err := p.Allocate("abc123")
	if err == nil {
		t.Fatal("expected allocation error")
	}
	if !types.IsCode(err, types.CodeWorkspaceAllocation) {
		t.Fatalf("error = %v, want code %s", err, types.CodeWorkspaceAllocation)
	}
}

func TestGitProviderAllocateRequiresCommit(t *testing.T) {
	p, cmd := newProvider(nil)
	if _, err := p.Allocate(""); err == nil {
		t.Fatal("expected error for empty base commit")
	}
	if cmd.count("git worktree add") != 0 {
		t.Fatal("worktree add invoked despite invalid input")
	}
}

func TestGitProviderDiscardUnknownHandleIsNoop(t *testing.T) {
	p, cmd := newProvider(nil)
	if err := p.Discard(Handle{ID: "nope", Path: "/scratch/nope"}); err != nil {
		t.Fatalf("Discard unknown: %v", err)
	}
	if cmd.count("git worktree remove") != 0 {
		t.Fatal("remove invoked for unknown handle")
	}
}
