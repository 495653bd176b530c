package provision

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DiskFreeFunc reports the bytes available to unprivileged writers at path
type DiskFreeFunc func(path string) (uint64, error)

// diskFree queries the filesystem holding path, walking up to an existing ancestor
func diskFree(path string) (uint64, error) {
	dir := filepath.Clean(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

// requiredBytes estimates the space an extraction needs
func requiredBytes(format Format, source string) (uint64, error) {
	if format == FormatZip {
		r, err := zip.OpenReader(source)
		if err != nil {
			return 0, err
		}
		defer r.Close()

		var total uint64
		for _, f := range r.File {
			total += f.UncompressedSize64
		}
		return total, nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()) * expansion[format], nil
}

// isNoSpace reports whether err came from a full volume
func isNoSpace(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EDQUOT)
}
