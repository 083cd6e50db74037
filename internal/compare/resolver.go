package compare

import (
	"fmt"

	"github.com/spf13/afero"
)

// PathResolver resolves repository ids against a configured registry of
// named repositories, falling back to treating the id itself as a directory
// path.
type PathResolver struct {
	fs    afero.Fs
	repos map[string]string
}

// NewPathResolver creates a resolver over the real filesystem.
func NewPathResolver(repos map[string]string) *PathResolver {
	return NewPathResolverWithFs(afero.NewOsFs(), repos)
}

// NewPathResolverWithFs injects a filesystem (for testing).
func NewPathResolverWithFs(fs afero.Fs, repos map[string]string) *PathResolver {
	return &PathResolver{fs: fs, repos: repos}
}

// Resolve returns the directory for a repository id.
func (r *PathResolver) Resolve(repositoryID string) (string, error) {
	path, ok := r.repos[repositoryID]
	if !ok {
		path = repositoryID
	}
	info, err := r.fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("repository %q: %w", repositoryID, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository %q: %s is not a directory", repositoryID, path)
	}
	return path, nil
}
