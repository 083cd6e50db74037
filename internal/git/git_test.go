package git

import (
	"errors"
	"strings"
	"testing"
)

// MockCommander is a test double for Commander that records calls and returns configured responses.
type MockCommander struct {
	// Calls records all commands that were executed
	Calls []MockCall
	// Responses maps command strings to their outputs/errors
	Responses map[string]MockResponse
}

// MockCall records a single command invocation.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

// MockResponse holds the output and error for a mocked command.
type MockResponse struct {
	Output string
	Error  error
}

// NewMockCommander creates a mock commander with pre-configured responses.
func NewMockCommander() *MockCommander {
	return &MockCommander{
		Responses: make(map[string]MockResponse),
	}
}

// Run implements Commander.Run
func (m *MockCommander) Run(name string, args ...string) (string, error) {
	return m.RunInDir("", name, args...)
}

// RunInDir implements Commander.RunInDir
func (m *MockCommander) RunInDir(dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, MockCall{Dir: dir, Name: name, Args: args})

	key := name + " " + strings.Join(args, " ")
	if resp, ok := m.Responses[key]; ok {
		return resp.Output, resp.Error
	}
	// Default: command succeeds with empty output
	return "", nil
}

// SetResponse configures the response for a command.
func (m *MockCommander) SetResponse(cmd string, output string, err error) {
	m.Responses[cmd] = MockResponse{Output: output, Error: err}
}

func TestHeadCommit(t *testing.T) {
	mock := NewMockCommander()
	mock.SetResponse("git rev-parse HEAD", "abc123def456", nil)
	client := NewClientWithCommander("/repo", mock)

	commit, err := client.HeadCommit()
	if err != nil {
		t.Fatalf("HeadCommit() error = %v", err)
	}
	if commit != "abc123def456" {
		t.Errorf("HeadCommit() = %q, want %q", commit, "abc123def456")
	}
	if mock.Calls[0].Dir != "/repo" {
		t.Errorf("command ran in %q, want /repo", mock.Calls[0].Dir)
	}
}

func TestHeadCommitError(t *testing.T) {
	mock := NewMockCommander()
	mock.SetResponse("git rev-parse HEAD", "", errors.New("fatal: not a git repository"))
	client := NewClientWithCommander("/repo", mock)

	if _, err := client.HeadCommit(); err == nil {
		t.Fatal("expected error for non-repository")
	}
}

func TestIsRepository(t *testing.T) {
	mock := NewMockCommander()
	mock.SetResponse("git rev-parse --is-inside-work-tree", "true", nil)
	client := NewClientWithCommander("/repo", mock)

	if !client.IsRepository() {
		t.Error("IsRepository() = false, want true")
	}

	mock.SetResponse("git rev-parse --is-inside-work-tree", "", errors.New("fatal"))
	if client.IsRepository() {
		t.Error("IsRepository() = true, want false")
	}
}

func TestAddWorktree(t *testing.T) {
	mock := NewMockCommander()
	client := NewClientWithCommander("/repo", mock)

	if err := client.AddWorktree("/tmp/wt-1", "abc123"); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}

	call := mock.Calls[0]
	want := []string{"worktree", "add", "--detach", "/tmp/wt-1", "abc123"}
	if call.Name != "git" || len(call.Args) != len(want) {
		t.Fatalf("call = %s %v", call.Name, call.Args)
	}
	for i := range want {
		if call.Args[i] != want[i] {
			t.Fatalf("args = %v, want %v", call.Args, want)
		}
	}
}

func TestRemoveWorktreeError(t *testing.T) {
	mock := NewMockCommander()
	mock.SetResponse("git worktree remove --force /tmp/wt-1", "", errors.New("is not a working tree"))
	client := NewClientWithCommander("/repo", mock)

	err := client.RemoveWorktree("/tmp/wt-1")
	if err == nil || !strings.Contains(err.Error(), "remove worktree") {
		t.Fatalf("RemoveWorktree() error = %v, want wrapped error", err)
	}
}
