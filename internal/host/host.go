package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/loader"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/provision"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is live
	ErrAlreadyRunning = errors.New("a runtime session is already running")
	// ErrGameFilesMissing is returned for an instance without game files
	ErrGameFilesMissing = errors.New("game files are not installed")
)

// Host owns every bridge component for one device
type Host struct {
	cfg      *config.Config
	layout   paths.Layout
	renderer types.Renderer
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	bus       *hostshell.Bus
	callbacks *hostshell.CallbackSlot
	forward   context.CancelFunc

	linker        loader.Linker
	platform      surface.Platform
	engine        audio.Engine
	vm            runtime.VM
	bundles       []provision.Bundle
	libraries     LibrarySource
	provisionOpts []provision.Option

	provisioner *provision.Provisioner
	loader      *loader.Loader
	store       *runtime.Store
	sessions    *runtime.Manager
	binding     *surface.Binding
	router      *surface.Router
	queue       *input.Queue
	translator  *input.Translator

	// startMu serializes Start and Shutdown
	startMu sync.Mutex

	mu        sync.Mutex
	installed []Installed
	libs      *loader.LoadedSet
	session   *runtime.Session
	audio     *audio.Bridge
	stopWatch context.CancelFunc
	watcher   *input.LayoutWatcher
	closed    bool
}

// New builds every component from cfg. Nothing is started.
func New(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	renderer, driver, err := cfg.RendererSelection()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	layout := paths.NewLayout(cfg.Storage.Home, cfg.Storage.Cache, cfg.Storage.LibraryDir)
	h := &Host{
		cfg:       cfg,
		layout:    layout,
		renderer:  renderer,
		logger:    logger.Named(logging.Host),
		metrics:   metrics,
		tracer:    tracing.New("host", logger.Named(logging.Host)),
		bus:       hostshell.NewBus(),
		callbacks: hostshell.NewCallbackSlot(),
		bundles:   provision.StandardBundles(cfg.Storage.BundlesDir, layout),
	}
	h.libraries = h.discoverLibraries
	for _, opt := range opts {
		opt(h)
	}
	if h.linker == nil {
		h.linker = loader.NewDynamicLinker()
	}

	h.provisioner = provision.New(logger, metrics, h.provisionOpts...)
	h.loader = loader.New(h.linker, logger, metrics)
	h.store = runtime.NewStore(layout, logger)

	monitor := monitoring.NewMemoryMonitor(monitoring.MemoryConfig{
		ThresholdMB:  cfg.Monitor.LowMemoryMB,
		PollInterval: cfg.Monitor.PollInterval,
		WarnInterval: cfg.Monitor.WarnInterval,
	}, metrics, logger.Named(logging.Runtime))
	h.sessions = runtime.NewManager(runtime.Settings{
		Layout:       layout,
		Renderer:     renderer,
		VulkanDriver: driver,
		HeapMB:       cfg.Runtime.HeapMB,
		JavaBinary:   cfg.Runtime.JavaBinary,
	}, logger, metrics,
		runtime.WithObserver(h.onSession),
		runtime.WithMemoryMonitor(monitor),
		runtime.WithReadyTimeout(cfg.Runtime.ReadyTimeout),
		runtime.WithPTY(cfg.Runtime.UsePTY))

	h.binding = surface.NewBinding(metrics)
	h.binding.OnChange(h.onSurface)
	if h.platform != nil {
		h.router = surface.NewRouter(h.binding, h.platform, renderer, logger, metrics,
			surface.WithGate(h),
			surface.WithInvalidationHook(h.onInvalidated))
	}

	controls := input.DefaultLayout()
	if cfg.Input.LayoutFile != "" {
		l, err := input.LoadLayout(cfg.Input.LayoutFile)
		switch {
		case err == nil:
			controls = l
		case errors.Is(err, os.ErrNotExist):
			h.logger.Info("Control layout not found, using default", zap.String("path", cfg.Input.LayoutFile))
		default:
			return nil, fmt.Errorf("failed to load control layout: %w", err)
		}
	}
	h.queue = input.NewQueue(metrics)
	h.translator = input.NewTranslator(h.queue, controls, 0, 0,
		input.WithSensitivity(cfg.Input.MouseSensitivity),
		input.WithPixelScale(cfg.Input.PixelScale),
		input.WithTapToClick(cfg.Input.TapToClick),
		input.WithTranslatorGate(h),
		input.WithTranslatorLogger(logger.Named(logging.Input)))

	ctx, cancel := context.WithCancel(context.Background())
	h.forward = cancel
	go h.bus.Forward(ctx, h.callbacks)

	return h, nil
}

// Start provisions, preflights the libraries, opens audio and launches the
// named instance. A failure releases everything acquired so far.
func (h *Host) Start(ctx context.Context, instance string) (sess *runtime.Session, err error) {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errors.New("host is closed")
	}
	if h.session != nil && !h.session.State().Terminal() {
		h.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	stale := h.session != nil
	h.mu.Unlock()

	// a previous session ended on its own; release what it held
	if stale {
		if err := h.shutdownLocked(ctx); err != nil {
			h.logger.Warn("Releasing previous session failed", zap.Error(err))
		}
	}

	span, ctx := h.tracer.StartSpan(ctx, "launch")
	span.SetTag("instance", instance)
	defer func() {
		span.Finish(err)
		h.tracer.Submit(span)
	}()

	var release []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(release) - 1; i >= 0; i-- {
			release[i]()
		}
		h.clearCache()
	}()

	inst, err := h.store.Load(instance)
	if err != nil {
		return nil, err
	}
	if !inst.HasGameFiles() {
		return nil, errs.New(errs.ProvisioningError, "launch", inst.Name, ErrGameFilesMissing)
	}

	var installed []Installed
	err = h.tracer.Trace(ctx, "provision", func(ctx context.Context) error {
		manifests, err := h.provisioner.ProvisionAll(ctx, h.bundles)
		for i, m := range manifests {
			in := Installed{Bundle: h.bundles[i], Manifest: m}
			files, bytes, uerr := provision.Usage(in.Bundle.Dest)
			if uerr != nil {
				h.logger.Warn("Failed to measure install", zap.String("bundle", in.Bundle.Name), zap.Error(uerr))
			}
			in.Files, in.Bytes = files, bytes
			installed = append(installed, in)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var libs *loader.LoadedSet
	err = h.tracer.Trace(ctx, "load", func(ctx context.Context) error {
		set, err := h.libraries(inst, installed)
		if err != nil {
			return errs.New(errs.LoadError, "discover", inst.Name, err)
		}
		resolver := loader.NewResolver(inst.GameDir())
		libs, err = h.loader.With(loader.WithResolver(resolver)).Load(ctx, set)
		return err
	})
	if err != nil {
		return nil, err
	}
	release = append(release, func() {
		if uerr := libs.Unload(); uerr != nil {
			h.logger.Warn("Failed to unload libraries", zap.Error(uerr))
		}
	})

	api, _ := types.ParseAudioAPI(h.cfg.Audio.API)
	bridge := audio.Open(ctx, h.engine,
		audio.WithAPI(api),
		audio.WithLogger(h.logger),
		audio.WithMetrics(h.metrics),
		audio.WithGate(h))
	release = append(release, func() { bridge.Close() })

	err = h.tracer.Trace(ctx, "start", func(ctx context.Context) error {
		var err error
		if h.vm != nil {
			sess, err = h.sessions.LaunchEmbedded(ctx, inst, h.vm)
		} else {
			sess, err = h.sessions.Launch(ctx, inst)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.installed = installed
	h.libs = libs
	h.audio = bridge
	h.session = sess
	h.mu.Unlock()

	h.watchLayout()
	h.logger.Info("Host started",
		zap.String("instance", inst.Name),
		zap.String("session_id", sess.ID.String()),
		zap.Int("libraries", libs.Len()),
		zap.Bool("audio_silent", bridge.Silent()))
	return sess, nil
}

// watchLayout starts the layout file watcher once
func (h *Host) watchLayout() {
	path := h.cfg.Input.LayoutFile
	h.mu.Lock()
	defer h.mu.Unlock()
	if path == "" || h.watcher != nil {
		return
	}
	w, err := input.NewLayoutWatcher(path, h.translator, h.logger.Named(logging.Input))
	if err != nil {
		h.logger.Warn("Layout hot reload disabled", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.watcher = w
	h.stopWatch = cancel
	go func() {
		if err := w.Run(ctx); err != nil {
			h.logger.Warn("Layout watcher stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the session, unloads the libraries and clears the cache.
// It is safe to call when nothing was started.
func (h *Host) Shutdown(ctx context.Context) error {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	return h.shutdownLocked(ctx)
}

func (h *Host) shutdownLocked(ctx context.Context) error {
	h.mu.Lock()
	sess, libs, bridge := h.session, h.libs, h.audio
	h.session, h.libs, h.audio, h.installed = nil, nil, nil, nil
	stopWatch := h.stopWatch
	h.stopWatch, h.watcher = nil, nil
	h.mu.Unlock()

	var errList []error
	if sess != nil && !sess.State().Terminal() {
		if _, err := h.sessions.Stop(ctx, sess.ID); err != nil && !errors.Is(err, runtime.ErrSessionNotFound) {
			errList = append(errList, fmt.Errorf("stop session: %w", err))
		}
	}
	if err := h.sessions.Shutdown(ctx); err != nil {
		errList = append(errList, fmt.Errorf("stop sessions: %w", err))
	}

	if stopWatch != nil {
		stopWatch()
	}
	h.translator.Cancel()
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close audio: %w", err))
		}
	}

	if libs != nil {
		if err := libs.Unload(); err != nil {
			errList = append(errList, fmt.Errorf("unload libraries: %w", err))
		}
	}
	h.clearCache()

	err := errors.Join(errList...)
	if err != nil {
		h.logger.Error("Shutdown incomplete", zap.Error(err))
	} else {
		h.logger.Info("Host shut down")
	}
	return err
}

// Close shuts down and stops event delivery for good
func (h *Host) Close(ctx context.Context) error {
	err := h.Shutdown(ctx)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return err
	}
	h.closed = true
	h.mu.Unlock()

	h.translator.Close()
	h.forward()
	h.bus.Close()
	h.tracer.Close()
	return err
}

// clearCache empties the scratch directory but keeps the directory itself
func (h *Host) clearCache() {
	entries, err := os.ReadDir(h.layout.Cache)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("Failed to read cache dir", zap.Error(err))
		}
		return
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(h.layout.Cache, e.Name())); err != nil {
			h.logger.Warn("Failed to clear cache entry", zap.String("entry", e.Name()), zap.Error(err))
		}
	}
}

// discoverLibraries reads the ELF dependencies of every shared object
// installed directly in one of the instance's library directories, and
// adds the game's own JNI libraries
func (h *Host) discoverLibraries(inst *runtime.Instance, installed []Installed) ([]loader.Library, error) {
	dirs := make(map[string]bool, len(inst.LibraryPath))
	for _, rel := range inst.LibraryPath {
		dirs[h.layout.Abs(rel)] = true
	}
	var found []string
	for _, in := range installed {
		for _, p := range in.Manifest.LibraryPaths(in.Bundle.Dest) {
			if dirs[filepath.Dir(p)] {
				found = append(found, p)
			}
		}
	}
	libs, err := loader.DiscoverELF(found)
	if err != nil {
		return nil, err
	}
	game, err := loader.GameLibraries(inst.GameDir())
	if err != nil {
		return nil, err
	}
	return append(libs, game...), nil
}

// Accepting gates bridge calls on the current session
func (h *Host) Accepting() bool {
	h.mu.Lock()
	sess := h.session
	h.mu.Unlock()
	return sess == nil || sess.Accepting()
}
