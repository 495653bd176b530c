package provision

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format identifies an archive container and its compression
type Format string

const (
	FormatTarXZ   Format = "tar.xz"
	FormatTarZstd Format = "tar.zst"
	FormatTarGzip Format = "tar.gz"
	FormatTar     Format = "tar"
	FormatZip     Format = "zip"
)

// expansion estimates uncompressed size from compressed size for streams
var expansion = map[Format]uint64{
	FormatTarXZ:   5,
	FormatTarZstd: 4,
	FormatTarGzip: 4,
	FormatTar:     1,
}

var mimeFormats = []struct {
	mime   string
	format Format
}{
	{"application/x-xz", FormatTarXZ},
	{"application/zstd", FormatTarZstd},
	{"application/gzip", FormatTarGzip},
	{"application/x-tar", FormatTar},
	{"application/zip", FormatZip},
}

// DetectFormat sniffs the archive format, falling back to the file extension
func DetectFormat(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect format of %s: %w", path, err)
	}

	for m := mtype; m != nil; m = m.Parent() {
		for _, mf := range mimeFormats {
			if m.Is(mf.mime) {
				return mf.format, nil
			}
		}
	}

	if f, ok := formatFromName(path); ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported archive format %s for %s", mtype.String(), path)
}

func formatFromName(name string) (Format, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXZ, true
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZstd, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGzip, true
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar, true
	case strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".jar"):
		return FormatZip, true
	}
	return "", false
}

// decompress wraps r with the decoder for a tar stream format
func decompress(format Format, r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	switch format {
	case FormatTarXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case FormatTarZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case FormatTarGzip:
		return gzip.NewReader(br)
	case FormatTar:
		return io.NopCloser(br), nil
	default:
		return nil, fmt.Errorf("format %s is not a tar stream", format)
	}
}
