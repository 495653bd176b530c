package provision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
	"github.com/bytedance/sonic"
)

// ErrNoManifest indicates a destination that was never completely provisioned
var ErrNoManifest = errors.New("no install manifest")

// ManifestEntry records one extracted file or symlink
type ManifestEntry struct {
	Path     string      `json:"path"`
	Mode     os.FileMode `json:"mode"`
	Size     int64       `json:"size"`
	Checksum string      `json:"checksum,omitempty"`
	Link     string      `json:"link,omitempty"`
}

// IsSymlink reports whether the entry is a symbolic link
func (e ManifestEntry) IsSymlink() bool {
	return e.Link != ""
}

// Manifest describes a completed extraction
type Manifest struct {
	Bundle    string          `json:"bundle"`
	Version   string          `json:"version"`
	Format    Format          `json:"format"`
	Algorithm string          `json:"algorithm"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []ManifestEntry `json:"entries"`
	Libraries []string        `json:"libraries"`

	// Skipped is set when provisioning found a matching install and did nothing
	Skipped bool `json:"-"`
}

// TotalSize sums the size of every regular file entry
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.Entries {
		total += e.Size
	}
	return total
}

// LibraryPaths returns absolute paths of the discovered shared libraries
func (m *Manifest) LibraryPaths(dest string) []string {
	out := make([]string, len(m.Libraries))
	for i, lib := range m.Libraries {
		out[i] = filepath.Join(dest, lib)
	}
	return out
}

// ManifestPath returns where the manifest for dest lives
func ManifestPath(dest string) string {
	return filepath.Join(dest, paths.ManifestFileName)
}

// LoadManifest reads the manifest in dest
func LoadManifest(dest string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// writeManifest replaces the manifest in dest atomically
func writeManifest(dest string, m *Manifest) error {
	data, err := sonic.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dest, paths.ManifestFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close manifest: %w", err)
	}

	if err := os.Rename(tmpName, ManifestPath(dest)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit manifest: %w", err)
	}
	return nil
}

// removeManifest marks dest as incomplete
func removeManifest(dest string) error {
	err := os.Remove(ManifestPath(dest))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
