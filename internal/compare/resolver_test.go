package compare

import (
	"testing"

	"github.com/spf13/afero"
)

func TestPathResolver(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/srv/repos/api", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/srv/repos/notes.txt", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewPathResolverWithFs(fs, map[string]string{"api": "/srv/repos/api"})

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{"named repository", "api", "/srv/repos/api", false},
		{"direct path", "/srv/repos/api", "/srv/repos/api", false},
		{"missing", "ghost", "", true},
		{"not a directory", "/srv/repos/notes.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) succeeded, want error", tt.id)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.id, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
