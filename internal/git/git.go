// Package git provides shell-based wrappers around the git CLI. It uses
// os/exec instead of go-git to ensure compatibility with the user's SSH
// keys, credential helpers, and other shell environment settings.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Common errors returned by git operations.
var (
	ErrGitNotInstalled  = errors.New("git is not installed or not in PATH")
	ErrNotGitRepository = errors.New("not a git repository")
)

// Commander is an interface for executing commands.
// This allows mocking in tests.
type Commander interface {
	Run(name string, args ...string) (string, error)
	RunInDir(dir, name string, args ...string) (string, error)
}

// ShellCommander executes real shell commands.
type ShellCommander struct{}

// Run executes a command in the current directory.
func (c *ShellCommander) Run(name string, args ...string) (string, error) {
	return c.RunInDir("", name, args...)
}

// RunInDir executes a command in the specified directory.
func (c *ShellCommander) RunInDir(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return "", fmt.Errorf("%w: %s", err, errMsg)
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Client wraps the git CLI operations used for repository snapshots and
// isolated worktrees.
type Client struct {
	commander Commander
	workDir   string
}

// NewClient creates a new git client for the given repository directory.
func NewClient(workDir string) *Client {
	return &Client{
		commander: &ShellCommander{},
		workDir:   workDir,
	}
}

// NewClientWithCommander creates a client with a custom commander (for testing).
func NewClientWithCommander(workDir string, commander Commander) *Client {
	return &Client{
		commander: commander,
		workDir:   workDir,
	}
}

// IsGitInstalled checks if the git binary is available in PATH.
func (c *Client) IsGitInstalled() bool {
	_, err := c.commander.Run("git", "--version")
	return err == nil
}

// IsRepository checks if the working directory is a git repository.
func (c *Client) IsRepository() bool {
	_, err := c.commander.RunInDir(c.workDir, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// HeadCommit returns the full hash of the current HEAD.
func (c *Client) HeadCommit() (string, error) {
	output, err := c.commander.RunInDir(c.workDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return output, nil
}

// CurrentBranch returns the name of the current branch.
func (c *Client) CurrentBranch() (string, error) {
	output, err := c.commander.RunInDir(c.workDir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("get current branch: %w", err)
	}
	return output, nil
}

// AddWorktree creates a detached worktree at path checked out at commit.
func (c *Client) AddWorktree(path, commit string) error {
	_, err := c.commander.RunInDir(c.workDir, "git", "worktree", "add", "--detach", path, commit)
	if err != nil {
		return fmt.Errorf("add worktree at %s: %w", path, err)
	}
	return nil
}

// RemoveWorktree removes the worktree at path, discarding its changes.
func (c *Client) RemoveWorktree(path string) error {
	_, err := c.commander.RunInDir(c.workDir, "git", "worktree", "remove", "--force", path)
	if err != nil {
		return fmt.Errorf("remove worktree at %s: %w", path, err)
	}
	return nil
}

// PruneWorktrees drops stale worktree bookkeeping left by removed or crashed
// worktrees.
func (c *Client) PruneWorktrees() error {
	_, err := c.commander.RunInDir(c.workDir, "git", "worktree", "prune")
	if err != nil {
		return fmt.Errorf("prune worktrees: %w", err)
	}
	return nil
}
