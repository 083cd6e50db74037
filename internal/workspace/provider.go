// Package workspace allocates isolated working directories for comparison
// runs. Each workspace is pinned to one snapshot commit so every backend
// starts from the identical point.
package workspace

import (
	"github.com/josephgoksu/AgentWing/types"
)

// Handle identifies one allocated workspace.
type Handle struct {
	ID   string
	Path string
}

// Provider allocates and discards isolated workspaces. The returned path is
// an opaque working directory handed to an executor adapter.
type Provider interface {
	// Allocate creates a workspace checked out at the snapshot commit.
	Allocate(baseCommit string) (Handle, error)
	// Discard removes the workspace and everything in it.
	Discard(h Handle) error
}

func allocationError(err error) error {
	return types.WrapError(types.CodeWorkspaceAllocation, err)
}
