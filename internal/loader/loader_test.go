package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLinker records open/close order and serves symbols from a table
type fakeLinker struct {
	symbols map[string][]string
	failOn  string
	failErr error

	handles map[Handle]string
	next    Handle
	opened  []string
	closed  []string
	stubs   int
}

func newFakeLinker(symbols map[string][]string) *fakeLinker {
	return &fakeLinker{symbols: symbols, handles: map[Handle]string{}, next: 1}
}

func (f *fakeLinker) Open(path string) (Handle, error) {
	if path == f.failOn {
		if f.failErr != nil {
			return 0, f.failErr
		}
		return 0, fmt.Errorf("dlopen %s: not found", path)
	}
	h := f.next
	f.next++
	f.handles[h] = path
	f.opened = append(f.opened, filepath.Base(path))
	return h, nil
}

func (f *fakeLinker) Symbol(h Handle, name string) (uintptr, error) {
	path := f.handles[h]
	for i, s := range f.symbols[filepath.Base(path)] {
		if s == name {
			return uintptr(h)<<8 | uintptr(i+1), nil
		}
	}
	return 0, errors.New("symbol not found")
}

func (f *fakeLinker) Close(h Handle) error {
	f.closed = append(f.closed, filepath.Base(f.handles[h]))
	return nil
}

func (f *fakeLinker) StubAddr(Stub) (uintptr, error) {
	f.stubs++
	return 0xdead, nil
}

func lib(name string, deps ...string) Library {
	return Library{Name: name, Path: "/libs/" + name, DependsOn: deps}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestOrderRespectsDependencies(t *testing.T) {
	libs := []Library{
		lib("libgame.so", "libjvm.so", "libgl4es.so"),
		lib("libjvm.so", "libc++_shared.so"),
		lib("libgl4es.so"),
		lib("libc++_shared.so"),
		lib("libfmod.so", "libc++_shared.so"),
	}

	g, err := BuildGraph(libs)
	require.NoError(t, err)
	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, len(libs))

	names := make([]string, len(order))
	for i, l := range order {
		names[i] = l.Name
	}
	for _, l := range libs {
		for _, dep := range l.DependsOn {
			assert.Less(t, indexOf(names, dep), indexOf(names, l.Name), "%s must load before %s", dep, l.Name)
		}
	}

	again, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, order, again, "order is deterministic")
}

func TestCyclesAreRejected(t *testing.T) {
	tests := []struct {
		name string
		libs []Library
	}{
		{"self", []Library{lib("a.so", "a.so")}},
		{"pair", []Library{lib("a.so", "b.so"), lib("b.so", "a.so")}},
		{"triangle", []Library{lib("a.so", "b.so"), lib("b.so", "c.so"), lib("c.so", "a.so")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGraph(tt.libs)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrCyclicDependency)

			var cycle *errs.CycleError
			require.ErrorAs(t, err, &cycle)
			require.GreaterOrEqual(t, len(cycle.Cycle), 2)
			assert.Equal(t, cycle.Cycle[0], cycle.Cycle[len(cycle.Cycle)-1], "cycle path is closed")
		})
	}
}

func TestUnknownDependencyIsAnError(t *testing.T) {
	_, err := BuildGraph([]Library{lib("a.so", "missing.so")})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrCyclicDependency)
}

func TestLoadOpensEachLibraryOnceInOrder(t *testing.T) {
	linker := newFakeLinker(map[string][]string{
		"libjvm.so":  {"JNI_CreateJavaVM"},
		"libgame.so": {"Java_zombie_core_Core_init"},
	})
	libs := []Library{
		{Name: "libgame.so", Path: "/libs/libgame.so", DependsOn: []string{"libjvm.so"}, Requires: []string{"Java_zombie_core_Core_init", "JNI_CreateJavaVM"}},
		{Name: "libjvm.so", Path: "/libs/libjvm.so"},
		{Name: "libjvm-alias.so", Path: "/libs/libjvm.so"},
	}

	set, err := New(linker, nil, nil).Load(context.Background(), libs)
	require.NoError(t, err)

	assert.Equal(t, []string{"libjvm.so", "libgame.so"}, linker.opened)
	assert.Equal(t, 2, set.Len())

	addr, err := set.Resolve("libgame.so", "JNI_CreateJavaVM")
	require.NoError(t, err)
	assert.NotZero(t, addr)

	require.NoError(t, set.Unload())
	assert.Equal(t, []string{"libgame.so", "libjvm.so"}, linker.closed)

	require.NoError(t, set.Unload())
	assert.Len(t, linker.closed, 2, "unload is idempotent")
}

func TestUnresolvedSymbolIsFatal(t *testing.T) {
	linker := newFakeLinker(map[string][]string{"liba.so": {"a_init"}})
	libs := []Library{
		lib("liba.so"),
		{Name: "libb.so", Path: "/libs/libb.so", DependsOn: []string{"liba.so"}, Requires: []string{"b_missing"}},
	}

	_, err := New(linker, nil, nil).Load(context.Background(), libs)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnresolvedSymbol)
	assert.Equal(t, errs.LoadError, errs.KindOf(err))

	var symErr *errs.SymbolError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "libb.so", symErr.Library)
	assert.Equal(t, "b_missing", symErr.Symbol)

	assert.Equal(t, []string{"libb.so", "liba.so"}, linker.closed, "opened libraries are closed newest first")
}

func TestOpenFailureUnwindsInReverse(t *testing.T) {
	linker := newFakeLinker(nil)
	linker.failOn = "/libs/libc.so"

	_, err := New(linker, nil, nil).Load(context.Background(), []Library{
		lib("liba.so"),
		lib("libb.so", "liba.so"),
		lib("libc.so", "libb.so"),
	})
	require.Error(t, err)
	assert.Equal(t, errs.LoadError, errs.KindOf(err))
	assert.Equal(t, []string{"liba.so", "libb.so"}, linker.opened)
	assert.Equal(t, []string{"libb.so", "liba.so"}, linker.closed)
}

func TestOpenFailureOnMissingSymbol(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"glibc", "/libs/libb.so: undefined symbol: b_helper"},
		{"bionic", `dlopen failed: cannot locate symbol "b_helper" referenced by "/libs/libb.so"...`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linker := newFakeLinker(nil)
			linker.failOn = "/libs/libb.so"
			linker.failErr = errors.New(tt.msg)

			_, err := New(linker, nil, nil).Load(context.Background(), []Library{lib("liba.so"), lib("libb.so", "liba.so")})
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrUnresolvedSymbol)
			assert.Equal(t, errs.LoadError, errs.KindOf(err))

			var symErr *errs.SymbolError
			require.ErrorAs(t, err, &symErr)
			assert.Equal(t, "libb.so", symErr.Library)
			assert.Equal(t, "b_helper", symErr.Symbol)
			assert.Equal(t, []string{"liba.so"}, linker.closed)
		})
	}
}

func TestOtherOpenFailureIsNotSymbolError(t *testing.T) {
	linker := newFakeLinker(nil)
	linker.failOn = "/libs/liba.so"

	_, err := New(linker, nil, nil).Load(context.Background(), []Library{lib("liba.so")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrUnresolvedSymbol)
}

func TestWithResolverCopy(t *testing.T) {
	game := t.TempDir()
	androidDir := filepath.Join(game, AndroidLibDir)
	require.NoError(t, os.MkdirAll(androidDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(androidDir, "libPZPopMan64.so"), nil, 0o644))

	linker := newFakeLinker(nil)
	base := New(linker, nil, nil)
	libs := []Library{{Name: "libPZPopMan64.so", Path: filepath.Join(game, "libPZPopMan64.so")}}

	set, err := base.With(WithResolver(NewResolver(game))).Load(context.Background(), libs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(androidDir, "libPZPopMan64.so")}, set.Paths())

	set, err = base.Load(context.Background(), libs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(game, "libPZPopMan64.so")}, set.Paths(), "the base loader keeps no resolver")
}

func TestLoadRejectsCycleWithoutOpening(t *testing.T) {
	linker := newFakeLinker(nil)
	_, err := New(linker, nil, nil).Load(context.Background(), []Library{lib("a.so", "b.so"), lib("b.so", "a.so")})

	assert.ErrorIs(t, err, errs.ErrCyclicDependency)
	assert.Empty(t, linker.opened)
}

func TestStubbedSymbolResolves(t *testing.T) {
	linker := newFakeLinker(nil)
	libs := []Library{{
		Name:     "libfmodintegration64.so",
		Path:     "/game/libfmodintegration64.so",
		Requires: []string{"Java_fmod_javafmodJNI_getAudioDevices"},
	}}

	set, err := New(linker, nil, nil).Load(context.Background(), libs)
	require.NoError(t, err)

	addr, err := set.Resolve("libfmodintegration64.so", "Java_fmod_javafmodJNI_getAudioDevices")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0xdead), addr)
	assert.Equal(t, 1, linker.stubs, "stub address is built once")
}

func TestResolverPrefersAndroidBuild(t *testing.T) {
	game := t.TempDir()
	androidDir := filepath.Join(game, AndroidLibDir)
	require.NoError(t, os.MkdirAll(androidDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(androidDir, "libPZBullet64.so"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(androidDir, "libfmodintegration64.so"), nil, 0o644))

	r := NewResolver(game)
	tests := []struct {
		in   string
		want string
	}{
		{"/game/linux64/libPZBullet64.so", filepath.Join(androidDir, "libPZBullet64.so")},
		{"/game/linux64/libLighting64.so", "/game/linux64/libLighting64.so"},
		{"/game/linux64/libfmodintegration64.so", "/game/linux64/libfmodintegration64.so"},
		{"/jre/lib/libjava.so", "/jre/lib/libjava.so"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(tt.in), tt.in)
	}

	require.NoError(t, os.Remove(filepath.Join(androidDir, "libPZBullet64.so")))
	assert.Equal(t, filepath.Join(androidDir, "libPZBullet64.so"), r.Resolve("/game/linux64/libPZBullet64.so"), "resolution is cached")
}

func TestParseJNISymbol(t *testing.T) {
	tests := []struct {
		sym  string
		want JNISymbol
	}{
		{"Java_zombie_core_Core_init", JNISymbol{Class: "zombie/core/Core", Method: "init"}},
		{"Java_fmod_javafmodJNI_FMOD_1System_1Create__JJ", JNISymbol{Class: "fmod/javafmodJNI", Method: "FMOD_System_Create", Signature: "(JJ)"}},
		{"Java_a_B_c__Ljava_lang_String_2_3I", JNISymbol{Class: "a/B", Method: "c", Signature: "(Ljava/lang/String;[I)"}},
		{"Java_a_B_caf_000e9", JNISymbol{Class: "a/B", Method: "café"}},
	}

	for _, tt := range tests {
		t.Run(tt.sym, func(t *testing.T) {
			got, err := ParseJNISymbol(tt.sym)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJNISymbolErrors(t *testing.T) {
	for _, sym := range []string{"JNI_OnLoad", "Java_nomethod", "Java_a_B_c_2", "Java_a_B_c_0zz"} {
		_, err := ParseJNISymbol(sym)
		assert.Error(t, err, sym)
	}
	_, err := ParseJNISymbol("JNI_OnLoad")
	assert.ErrorIs(t, err, ErrNotJNISymbol)
}

func TestSignatureCacheEvictsOldest(t *testing.T) {
	c := &SignatureCache{}
	for i := 0; i < signatureCacheSize+1; i++ {
		c.Put(fmt.Sprintf("sym%d", i), JNISymbol{Method: fmt.Sprint(i)})
	}

	_, ok := c.Get("sym0")
	assert.False(t, ok)
	got, ok := c.Get(fmt.Sprintf("sym%d", signatureCacheSize))
	require.True(t, ok)
	assert.Equal(t, fmt.Sprint(signatureCacheSize), got.Method)

	js, err := c.Parse("Java_a_B_c")
	require.NoError(t, err)
	cached, ok := c.Get("Java_a_B_c")
	require.True(t, ok)
	assert.Equal(t, js, cached)
}

func TestDiscoverELFRejectsNonELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libfake.so")
	require.NoError(t, os.WriteFile(path, []byte("not an elf"), 0o644))

	_, err := DiscoverELF([]string{path})
	assert.Error(t, err)
}

func TestDiscoverELFReadsNeeded(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	if _, err := neededLibraries(exe); err != nil {
		t.Skip("test binary is statically linked")
	}

	libs, err := DiscoverELF([]string{exe, exe})
	require.NoError(t, err)
	require.Len(t, libs, 1, "duplicate names collapse")
	assert.Empty(t, libs[0].DependsOn, "system dependencies are not modelled")
}

func TestGameLibraries(t *testing.T) {
	game := t.TempDir()
	libs, err := GameLibraries(game)
	require.NoError(t, err)
	assert.Empty(t, libs)

	exe, err := os.Executable()
	require.NoError(t, err)
	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(game, "libPZBullet64.so"), data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(game, "libunrelated.so"), []byte("x"), 0o644))

	libs, err = GameLibraries(game)
	require.NoError(t, err)
	require.Len(t, libs, 1)
	assert.Equal(t, "libPZBullet64.so", libs[0].Name)
	assert.Empty(t, libs[0].Requires, "the test binary exports no JNI methods")

	require.NoError(t, os.WriteFile(filepath.Join(game, "libLighting64.so"), []byte("not an elf"), 0o644))
	_, err = GameLibraries(game)
	assert.Error(t, err)
}
