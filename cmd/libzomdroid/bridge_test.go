package main

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Home = filepath.Join(root, "home")
	cfg.Storage.Cache = filepath.Join(root, "cache")
	cfg.Storage.LibraryDir = filepath.Join(root, "lib")
	cfg.Storage.BundlesDir = filepath.Join(root, "bundles")
	cfg.Logging.Level = "error"
	return cfg
}

func TestCodes(t *testing.T) {
	assert.Equal(t, codeOK, code(nil))
	assert.Equal(t, codeCrashed, code(errs.New(errs.RuntimeFault, "swap", "", errs.ErrSessionCrashed)))
	assert.Equal(t, codeNotInitialized, code(errNotInitialized))
	assert.Equal(t, codeNotRunning, code(errNotRunning))
	assert.Equal(t, codeError, code(errors.New("boom")))
}

func TestCallsBeforeInit(t *testing.T) {
	var n native
	assert.ErrorIs(t, n.start("main"), errNotInitialized)
	assert.ErrorIs(t, n.surfaceInit(1, 10, 10), errNotInitialized)
	assert.Nil(t, n.translator())
	polled, err := n.poll(make([]input.Event, 4))
	assert.Zero(t, polled)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.True(t, n.shouldClose(1))
	w, h := n.windowSize(1)
	assert.Zero(t, w)
	assert.Zero(t, h)
	assert.ErrorIs(t, n.unsupported("glfwSetWindowIcon"), errNotInitialized)
	assert.ErrorIs(t, n.swapInterval(1), errNotInitialized)
	_, err = n.audio()
	assert.ErrorIs(t, err, errNotInitialized)
	assert.ErrorIs(t, n.deinit(), errNotInitialized)
}

func TestNativeLifecycle(t *testing.T) {
	var n native
	require.NoError(t, n.init(testConfig(t), testutil.NewMockPlatform(t), testutil.NewMockEngine(t), nil))
	assert.Error(t, n.init(testConfig(t), nil, nil, nil))
	t.Cleanup(func() { n.deinit() })

	got := make(chan hostshell.Event, 4)
	require.NoError(t, n.setCallback(func(e hostshell.Event) { got <- e }))

	require.NoError(t, n.surfaceInit(0x10, 1000, 1000))
	select {
	case e := <-got:
		assert.Equal(t, hostshell.SurfaceBound, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no surface event")
	}

	n.translator().Key(65, true)
	buf := make([]input.Event, 8)
	polled, err := n.poll(buf)
	require.NoError(t, err)
	require.Equal(t, 1, polled)
	assert.Equal(t, input.KeyEvent(65, true), buf[0])

	r, err := n.router()
	require.NoError(t, err)
	win, err := r.CreateWindow(640, 480, "game")
	require.NoError(t, err)
	w, h := r.GetFramebufferSize(win)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 1000, h)
	w, h = n.windowSize(win)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 1000, h)
	assert.False(t, n.shouldClose(win))
	r.RequestClose()
	assert.True(t, n.shouldClose(win))
	assert.NoError(t, n.swapInterval(1))
	assert.NoError(t, n.unsupported("glfwSetWindowIcon"))
	ctx, err := r.CreateContext()
	require.NoError(t, err)
	assert.NoError(t, n.destroyContext(ctx))
	assert.ErrorIs(t, n.destroyContext(ctx), surface.ErrUnknownContext)
	require.NoError(t, n.destroyWindow(win))
	assert.ErrorIs(t, n.destroyWindow(win), surface.ErrUnknownWindow)
	assert.True(t, n.shouldClose(win))

	_, err = n.audio()
	assert.ErrorIs(t, err, errNotRunning)

	require.NoError(t, n.surfaceDeinit())
	require.NoError(t, n.stop())
	require.NoError(t, n.deinit())
	_, err = n.current()
	assert.ErrorIs(t, err, errNotInitialized)
}
