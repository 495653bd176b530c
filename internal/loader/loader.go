package loader

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"go.uber.org/zap"
)

// Loader opens a library set in dependency order
type Loader struct {
	linker   Linker
	resolver *Resolver
	stubs    *StubTable
	sigs     *SignatureCache
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// Option configures a Loader
type Option func(*Loader)

// WithResolver redirects JNI libraries through r
func WithResolver(r *Resolver) Option {
	return func(l *Loader) { l.resolver = r }
}

// WithStubs replaces the default stub table
func WithStubs(t *StubTable) Option {
	return func(l *Loader) { l.stubs = t }
}

// New creates a loader
func New(linker Linker, logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loader{
		linker:  linker,
		stubs:   NewStubTable(DefaultStubs),
		sigs:    &SignatureCache{},
		logger:  logger.Named(logging.Loader),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// With returns a copy of l with opts applied on top
func (l *Loader) With(opts ...Option) *Loader {
	c := *l
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Load opens every library once, dependencies first, and checks required symbols
func (l *Loader) Load(ctx context.Context, libs []Library) (*LoadedSet, error) {
	g, err := BuildGraph(libs)
	if err != nil {
		l.fail("graph", err)
		return nil, errs.New(errs.LoadError, "load", "graph", err)
	}
	order, err := g.Order()
	if err != nil {
		l.fail("graph", err)
		return nil, errs.New(errs.LoadError, "load", "graph", err)
	}

	set := &LoadedSet{
		linker:   l.linker,
		stubs:    l.stubs,
		sigs:     l.sigs,
		logger:   l.logger,
		byName:   make(map[string]int, len(order)),
		byPath:   make(map[string]int, len(order)),
		stubAddr: make(map[Stub]uintptr),
	}

	for _, lib := range order {
		if err := ctx.Err(); err != nil {
			set.Unload()
			return nil, err
		}

		path := lib.Path
		if l.resolver != nil {
			path = l.resolver.Resolve(path)
		}

		// two names resolving to one file share a handle
		if idx, ok := set.byPath[path]; ok {
			set.byName[lib.Name] = idx
			continue
		}

		h, err := l.linker.Open(path)
		if err != nil {
			set.Unload()
			if symErr := undefinedSymbol(lib, err); symErr != nil {
				l.fail("unresolved_symbol", symErr)
				return nil, errs.New(errs.LoadError, "open", lib.Name, symErr)
			}
			l.fail("open", err)
			return nil, errs.New(errs.LoadError, "open", lib.Name, err)
		}

		set.libs = append(set.libs, loaded{lib: lib, path: path, handle: h})
		set.byName[lib.Name] = len(set.libs) - 1
		set.byPath[path] = len(set.libs) - 1
		l.logger.Debug("Opened library", zap.String("library", lib.Name), zap.String("path", path))
	}

	for _, lib := range order {
		for _, sym := range lib.Requires {
			if _, err := set.lookupFor(lib, sym); err != nil {
				set.Unload()
				l.fail("unresolved_symbol", err)
				return nil, errs.New(errs.LoadError, "resolve", lib.Name, err)
			}
		}
	}

	l.metrics.SetLibrariesLoaded(len(set.libs))
	l.logger.Info("Loaded libraries", zap.Int("count", len(set.libs)), zap.Strings("order", set.Names()))
	return set, nil
}

// glibc and bionic phrasings of a failed relocation
var undefinedSymbolPattern = regexp.MustCompile(`(?:undefined symbol: |cannot locate symbol ")([^"\s,]+)`)

// undefinedSymbol turns a dlopen failure caused by a missing symbol into a
// SymbolError, or returns nil for any other failure
func undefinedSymbol(lib Library, err error) error {
	m := undefinedSymbolPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", &errs.SymbolError{Library: lib.Name, Symbol: m[1]}, err)
}

func (l *Loader) fail(reason string, err error) {
	l.metrics.RecordLoadFailure(reason)
	l.logger.Error("Library load failed", zap.String("reason", reason), zap.Error(err))
}

type loaded struct {
	lib    Library
	path   string
	handle Handle
}

// LoadedSet owns the handles opened by one Load
type LoadedSet struct {
	linker Linker
	stubs  *StubTable
	sigs   *SignatureCache
	logger *logging.Logger

	mu       sync.Mutex
	libs     []loaded
	byName   map[string]int
	byPath   map[string]int
	stubAddr map[Stub]uintptr
	unloaded bool
}

// Names returns library names in load order
func (s *LoadedSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.libs))
	for i, l := range s.libs {
		names[i] = l.lib.Name
	}
	return names
}

// Paths returns the opened file paths in load order
func (s *LoadedSet) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.libs))
	for i, l := range s.libs {
		out[i] = l.path
	}
	return out
}

// Len returns the number of opened libraries
func (s *LoadedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.libs)
}

// Lookup searches every loaded library for sym in load order
func (s *LoadedSet) Lookup(sym string) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return 0, errors.New("library set unloaded")
	}
	for _, l := range s.libs {
		if addr, err := s.linker.Symbol(l.handle, sym); err == nil && addr != 0 {
			return addr, nil
		}
	}
	return 0, &errs.SymbolError{Library: "*", Symbol: sym}
}

// Resolve finds sym in the named library, honouring the stub table
func (s *LoadedSet) Resolve(library, sym string) (uintptr, error) {
	s.mu.Lock()
	idx, ok := s.byName[library]
	var lib Library
	if ok {
		lib = s.libs[idx].lib
	}
	s.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("library %s is not loaded", library)
	}
	return s.lookupFor(lib, sym)
}

// lookupFor resolves sym on behalf of lib: stubs first, then lib itself,
// then the rest of the set
func (s *LoadedSet) lookupFor(lib Library, sym string) (uintptr, error) {
	if stub, ok := s.stubs.Find(lib.Path, sym); ok {
		return s.stub(stub, sym)
	}

	if strings.HasPrefix(sym, "Java_") {
		if js, err := s.sigs.Parse(sym); err == nil {
			s.logger.Debug("Resolving JNI method",
				zap.String("library", lib.Name),
				zap.String("class", js.Class),
				zap.String("method", js.Method),
				zap.String("signature", js.Signature))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return 0, errors.New("library set unloaded")
	}
	if idx, ok := s.byName[lib.Name]; ok {
		if addr, err := s.linker.Symbol(s.libs[idx].handle, sym); err == nil && addr != 0 {
			return addr, nil
		}
	}
	for _, l := range s.libs {
		if addr, err := s.linker.Symbol(l.handle, sym); err == nil && addr != 0 {
			return addr, nil
		}
	}
	return 0, &errs.SymbolError{Library: lib.Name, Symbol: sym}
}

func (s *LoadedSet) stub(stub Stub, sym string) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr, ok := s.stubAddr[stub]; ok {
		return addr, nil
	}
	sl, ok := s.linker.(StubLinker)
	if !ok {
		return 0, &errs.SymbolError{Library: stub.Library, Symbol: sym}
	}
	addr, err := sl.StubAddr(stub)
	if err != nil {
		return 0, fmt.Errorf("failed to build stub for %s: %w", sym, err)
	}
	s.stubAddr[stub] = addr
	s.logger.Debug("Stubbed symbol", zap.String("library", stub.Library), zap.String("symbol", sym))
	return addr, nil
}

// Unload closes libraries in reverse load order; later calls do nothing
func (s *LoadedSet) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return nil
	}
	s.unloaded = true

	var errList []error
	for i := len(s.libs) - 1; i >= 0; i-- {
		if err := s.linker.Close(s.libs[i].handle); err != nil {
			errList = append(errList, fmt.Errorf("close %s: %w", s.libs[i].lib.Name, err))
		}
	}
	return errors.Join(errList...)
}
