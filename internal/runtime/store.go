package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

var (
	ErrInstanceExists   = errors.New("instance already exists")
	ErrInstanceNotFound = errors.New("instance not found")
)

// Store persists instances as instance.toml under instances/<name>/
type Store struct {
	layout paths.Layout
	logger *logging.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewStore creates a store rooted at the layout's home
func NewStore(layout paths.Layout, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{layout: layout, logger: logger.Named(logging.Runtime), now: time.Now}
}

// Create makes the instance directories and saves a fresh descriptor
func (s *Store) Create(name string, preset Preset) (*Instance, error) {
	if err := paths.ValidateInstanceName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dirs := s.layout.Instance(name)
	if _, err := os.Stat(dirs.Root); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceExists, name)
	}
	if err := os.MkdirAll(dirs.Game(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create instance directory: %w", err)
	}

	inst := newInstance(name, dirs.Root, preset, s.now())
	if err := s.write(inst); err != nil {
		os.RemoveAll(dirs.Root)
		return nil, err
	}

	s.logger.Info("Created instance",
		zap.String("instance", name),
		zap.String("id", inst.ID.String()),
		zap.String("preset", preset.Name))
	return inst, nil
}

// Load reads one instance
func (s *Store) Load(name string) (*Instance, error) {
	if err := paths.ValidateInstanceName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(s.layout.Instance(name).File())
}

// List returns every readable instance sorted by name
func (s *Store) List() ([]*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.layout.InstancesRoot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var out []*Instance
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		inst, err := s.read(s.layout.Instance(e.Name()).File())
		if err != nil {
			s.logger.Warn("Skipping unreadable instance", zap.String("instance", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, inst)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Save writes inst back to disk
func (s *Store) Save(inst *Instance) error {
	if err := paths.ValidateInstanceName(inst.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(inst)
}

// MarkInstalled records that the game files finished installing
func (s *Store) MarkInstalled(name string) (*Instance, error) {
	inst, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	inst.InstallationFinished = true
	if err := s.Save(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Delete removes an instance and its game files
func (s *Store) Delete(name string) error {
	if err := paths.ValidateInstanceName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.layout.Instance(name).Root
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}
	return os.RemoveAll(root)
}

func (s *Store) read(path string) (*Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, filepath.Base(filepath.Dir(path)))
		}
		return nil, fmt.Errorf("failed to read instance: %w", err)
	}

	var inst Instance
	if err := toml.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &inst, nil
}

func (s *Store) write(inst *Instance) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(inst); err != nil {
		return fmt.Errorf("failed to encode instance: %w", err)
	}

	path := paths.Instance{Root: inst.Home}.File()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write instance: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit instance: %w", err)
	}
	return nil
}
