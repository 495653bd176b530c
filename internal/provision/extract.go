package provision

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/utils"
)

// sourceReader remembers the first error the archive side produced, so a
// failed copy can be blamed on the archive or on the destination
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}

// extractor writes archive entries below root and records them
type extractor struct {
	root    string
	hasher  *utils.Hasher
	entries []ManifestEntry
	buf     []byte
}

func newExtractor(root string, hasher *utils.Hasher) *extractor {
	return &extractor{root: root, hasher: hasher, buf: make([]byte, 256*1024)}
}

// corrupt wraps a decode failure
func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrCorruptArchive, fmt.Sprintf(format, args...))
}

// target resolves an archive entry name to a path inside root
func (x *extractor) target(name string) (string, string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(name, "./")))
	if rel == "." || rel == "" {
		return "", "", nil
	}
	if filepath.IsAbs(rel) {
		return "", "", corrupt("absolute entry path %q", name)
	}

	full := filepath.Join(x.root, rel)
	if !utils.WithinRoot(x.root, full) || full == x.root {
		return "", "", corrupt("entry %q escapes the destination", name)
	}
	return full, filepath.ToSlash(rel), nil
}

func (x *extractor) extractTar(ctx context.Context, r io.Reader) error {
	src := &sourceReader{r: r}
	tr := tar.NewReader(src)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return corrupt("reading header: %v", err)
		}

		full, rel, err := x.target(hdr.Name)
		if err != nil {
			return err
		}
		if full == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(full, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := x.writeFile(full, rel, hdr.FileInfo().Mode().Perm(), tr, src); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := x.symlink(full, rel, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			if err := x.hardlink(full, rel, hdr.Linkname); err != nil {
				return err
			}
		default:
			// device nodes, fifos and pax globals have no place in a bundle
			continue
		}
	}
}

func (x *extractor) extractZip(ctx context.Context, source string) error {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return corrupt("opening zip: %v", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		full, rel, err := x.target(f.Name)
		if err != nil {
			return err
		}
		if full == "" {
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(full, 0o755); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return corrupt("opening entry %s: %v", f.Name, err)
		}

		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0o644
		}
		src := &sourceReader{r: rc}
		err = x.writeFile(full, rel, mode, src, src)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// writeFile streams one entry to disk while hashing it
func (x *extractor) writeFile(full, rel string, mode os.FileMode, r io.Reader, src *sourceReader) error {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	w, sum := x.hasher.TeeWriter(f)
	n, copyErr := io.CopyBuffer(w, r, x.buf)
	closeErr := f.Close()

	if copyErr != nil {
		if src.err != nil || errors.Is(copyErr, io.ErrUnexpectedEOF) || errors.Is(copyErr, zip.ErrChecksum) {
			return corrupt("entry %s: %v", rel, copyErr)
		}
		return fmt.Errorf("writing %s: %w", rel, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", rel, closeErr)
	}

	// umask may have stripped bits the archive asked for
	if err := os.Chmod(full, mode); err != nil {
		return err
	}

	x.entries = append(x.entries, ManifestEntry{Path: rel, Mode: mode, Size: n, Checksum: sum()})
	return nil
}

func (x *extractor) symlink(full, rel, link string) error {
	if filepath.IsAbs(link) {
		return corrupt("symlink %s points outside the destination", rel)
	}
	resolved := filepath.Join(filepath.Dir(full), link)
	if !utils.WithinRoot(x.root, resolved) {
		return corrupt("symlink %s escapes the destination", rel)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	os.Remove(full)
	if err := os.Symlink(link, full); err != nil {
		return err
	}

	x.entries = append(x.entries, ManifestEntry{Path: rel, Mode: os.ModeSymlink | 0o777, Link: link})
	return nil
}

func (x *extractor) hardlink(full, rel, link string) error {
	linkFull, linkRel, err := x.target(link)
	if err != nil {
		return err
	}
	if linkFull == "" {
		return corrupt("hard link %s has no target", rel)
	}

	var original *ManifestEntry
	for i := range x.entries {
		if x.entries[i].Path == linkRel {
			original = &x.entries[i]
			break
		}
	}
	if original == nil {
		return corrupt("hard link %s refers to unknown entry %s", rel, link)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	os.Remove(full)
	if err := os.Link(linkFull, full); err != nil {
		return err
	}

	entry := *original
	entry.Path = rel
	x.entries = append(x.entries, entry)
	return nil
}
