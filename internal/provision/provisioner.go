package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/utils"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// stagingSuffix names the sibling directory extraction happens in
const stagingSuffix = ".partial"

// libraryPattern selects shared objects for the loader
const libraryPattern = "**/*.so"

// ErrManifestMismatch indicates an installed file that no longer matches its manifest entry
var ErrManifestMismatch = errors.New("install does not match manifest")

// Provisioner extracts bundles and verifies installs
type Provisioner struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics
	hasher  *utils.Hasher
	source  *utils.Hasher
	free    DiskFreeFunc
	workers int
	now     func() time.Time
}

// Option configures a Provisioner
type Option func(*Provisioner)

// WithDiskFree overrides the free-space query
func WithDiskFree(fn DiskFreeFunc) Option {
	return func(p *Provisioner) { p.free = fn }
}

// WithWorkers bounds verification concurrency
func WithWorkers(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New creates a provisioner
func New(logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) *Provisioner {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Provisioner{
		logger:  logger.Named(logging.Provision),
		metrics: metrics,
		hasher:  utils.DefaultHasher(),
		source:  utils.NewHasher(utils.SHA256),
		free:    diskFree,
		workers: runtime.NumCPU(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision installs a bundle unless a matching install already exists
func (p *Provisioner) Provision(ctx context.Context, b Bundle) (manifest *Manifest, err error) {
	start := p.now()
	defer func() {
		var bytes int64
		skipped := false
		if manifest != nil {
			bytes = manifest.TotalSize()
			skipped = manifest.Skipped
		}
		p.metrics.RecordProvision(b.Name, skipped, bytes, time.Since(start), err)
	}()

	version, err := p.source.HashFile(b.Source)
	if err != nil {
		return nil, errs.New(errs.ProvisioningError, "provision", b.Name, fmt.Errorf("failed to read source: %w", err))
	}

	if existing, verr := p.Verify(ctx, b.Dest); verr == nil && existing.Version == version {
		existing.Skipped = true
		p.logger.Debug("Bundle already provisioned", zap.String("bundle", b.Name), zap.String("dest", b.Dest))
		return existing, nil
	} else if verr != nil && !errors.Is(verr, ErrNoManifest) {
		p.logger.Info("Reprovisioning bundle", zap.String("bundle", b.Name), zap.Error(verr))
	}

	manifest, err = p.extract(ctx, b, version)
	if err != nil {
		p.logger.Error("Provisioning failed", zap.String("bundle", b.Name), zap.Error(err))
		return nil, errs.New(errs.ProvisioningError, "provision", b.Name, err)
	}

	p.logger.Info("Provisioned bundle",
		zap.String("bundle", b.Name),
		zap.String("format", string(manifest.Format)),
		zap.Int("entries", len(manifest.Entries)),
		zap.Int("libraries", len(manifest.Libraries)),
		zap.Int64("bytes", manifest.TotalSize()),
		zap.Duration("duration", time.Since(start)))
	return manifest, nil
}

// ProvisionAll provisions bundles in order and stops at the first failure
func (p *Provisioner) ProvisionAll(ctx context.Context, bundles []Bundle) ([]*Manifest, error) {
	out := make([]*Manifest, 0, len(bundles))
	for _, b := range bundles {
		m, err := p.Provision(ctx, b)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (p *Provisioner) extract(ctx context.Context, b Bundle, version string) (*Manifest, error) {
	format, err := DetectFormat(b.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptArchive, err)
	}

	need, err := requiredBytes(format, b.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptArchive, err)
	}
	avail, err := p.free(b.Dest)
	if err != nil {
		return nil, fmt.Errorf("failed to query free space: %w", err)
	}
	if need > avail {
		return nil, fmt.Errorf("%w: need %d bytes, %d available", errs.ErrInsufficientStorage, need, avail)
	}

	// the old install stops counting as complete before anything is touched
	if err := removeManifest(b.Dest); err != nil {
		return nil, fmt.Errorf("failed to invalidate manifest: %w", err)
	}

	staging := filepath.Clean(b.Dest) + stagingSuffix
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("failed to clear staging: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, classifyWrite(fmt.Errorf("failed to create staging: %w", err))
	}

	manifest, err := p.extractInto(ctx, staging, format, b.Source)
	if err != nil {
		os.RemoveAll(staging)
		return nil, classifyWrite(err)
	}

	if files, bytes, err := Usage(b.Dest); err == nil && files > 0 {
		p.logger.Info("Replacing stale install",
			zap.String("bundle", b.Name),
			zap.Int64("files", files),
			zap.Int64("bytes", bytes))
	}
	if err := os.RemoveAll(b.Dest); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to remove stale install: %w", err)
	}
	if err := os.Rename(staging, b.Dest); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to move install into place: %w", err)
	}

	manifest.Bundle = b.Name
	manifest.Version = version
	manifest.Format = format
	manifest.Algorithm = string(p.hasher.Algorithm())
	manifest.CreatedAt = p.now().UTC()

	if err := writeManifest(b.Dest, manifest); err != nil {
		return nil, classifyWrite(err)
	}
	return manifest, nil
}

func (p *Provisioner) extractInto(ctx context.Context, staging string, format Format, source string) (*Manifest, error) {
	x := newExtractor(staging, p.hasher)

	if format == FormatZip {
		if err := x.extractZip(ctx, source); err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r, err := decompress(format, f)
		if err != nil {
			return nil, corrupt("opening %s stream: %v", format, err)
		}
		defer r.Close()

		if err := x.extractTar(ctx, r); err != nil {
			return nil, err
		}
	}

	sort.Slice(x.entries, func(i, j int) bool { return x.entries[i].Path < x.entries[j].Path })

	libs, err := discoverLibraries(x.entries)
	if err != nil {
		return nil, err
	}
	return &Manifest{Entries: x.entries, Libraries: libs}, nil
}

// discoverLibraries picks the regular-file shared objects out of the entries
func discoverLibraries(entries []ManifestEntry) ([]string, error) {
	libs := []string{}
	for _, e := range entries {
		if e.IsSymlink() {
			continue
		}
		ok, err := doublestar.Match(libraryPattern, e.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to match libraries: %w", err)
		}
		if ok {
			libs = append(libs, e.Path)
		}
	}
	return libs, nil
}

// Verify re-hashes every manifest entry in dest concurrently
func (p *Provisioner) Verify(ctx context.Context, dest string) (*Manifest, error) {
	m, err := LoadManifest(dest)
	if err != nil {
		return nil, err
	}

	hasher := utils.NewHasher(utils.HashAlgorithm(m.Algorithm))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, entry := range m.Entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return verifyEntry(hasher, dest, entry)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

func verifyEntry(hasher *utils.Hasher, dest string, e ManifestEntry) error {
	full := filepath.Join(dest, filepath.FromSlash(e.Path))

	if e.IsSymlink() {
		link, err := os.Readlink(full)
		if err != nil || link != e.Link {
			return fmt.Errorf("%w: symlink %s", ErrManifestMismatch, e.Path)
		}
		return nil
	}

	info, err := os.Stat(full)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrManifestMismatch, e.Path, err)
	}
	if info.Mode().Perm() != e.Mode.Perm() {
		return fmt.Errorf("%w: %s mode %v, want %v", ErrManifestMismatch, e.Path, info.Mode().Perm(), e.Mode.Perm())
	}
	if info.Size() != e.Size {
		return fmt.Errorf("%w: %s size %d, want %d", ErrManifestMismatch, e.Path, info.Size(), e.Size)
	}

	sum, err := hasher.HashFile(full)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrManifestMismatch, err)
	}
	if sum != e.Checksum {
		return fmt.Errorf("%w: %s checksum differs", ErrManifestMismatch, e.Path)
	}
	return nil
}

// Usage returns the number of files and bytes under dir
func Usage(dir string) (files int64, bytes int64, err error) {
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		atomic.AddInt64(&files, 1)
		atomic.AddInt64(&bytes, info.Size())
		return nil
	})
	return files, bytes, err
}

// classifyWrite maps a full volume onto ErrInsufficientStorage
func classifyWrite(err error) error {
	if err == nil || errors.Is(err, errs.ErrCorruptArchive) || errors.Is(err, errs.ErrInsufficientStorage) {
		return err
	}
	if isNoSpace(err) {
		return fmt.Errorf("%w: %v", errs.ErrInsufficientStorage, err)
	}
	return err
}
