package surface_test

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gate struct{ accepting bool }

func (g *gate) Accepting() bool { return g.accepting }

const win = surface.NativeWindow(7)

func TestRouterDefersContextUntilBound(t *testing.T) {
	platform := new(testutil.MockPlatform)
	platform.On("CreateContext", win, types.RendererGL4ES).Return(surface.PlatformContext(100), nil).Once()
	platform.On("MakeCurrent", surface.PlatformContext(100), win).Return(nil).Once()
	platform.On("SwapBuffers", surface.PlatformContext(100), win).Return(nil).Once()
	platform.On("ContextLost", mock.Anything).Return(false).Maybe()

	binding := surface.NewBinding(nil)
	r := surface.NewRouter(binding, platform, types.RendererGL4ES, nil, nil)

	w, err := r.CreateWindow(1280, 720, "Project Zomboid")
	require.NoError(t, err)
	c, err := r.CreateContext()
	require.NoError(t, err)
	require.NoError(t, r.MakeContextCurrent(c))

	// unbound: three swaps collapse into one buffered swap
	for i := 0; i < 3; i++ {
		require.NoError(t, r.SwapBuffers(w))
	}
	platform.AssertNotCalled(t, "SwapBuffers", mock.Anything, mock.Anything)

	fw, fh := r.GetFramebufferSize(w)
	assert.Equal(t, 1280, fw)
	assert.Equal(t, 720, fh)

	require.NoError(t, binding.Bind(win, 2400, 1080))
	platform.AssertNotCalled(t, "CreateContext", mock.Anything, mock.Anything)

	// the render thread's next swap presents on the new surface
	require.NoError(t, r.SwapBuffers(w))
	platform.AssertExpectations(t)

	fw, fh = r.GetFramebufferSize(w)
	assert.Equal(t, 2400, fw)
	assert.Equal(t, 1080, fh)
}

func TestRouterRecreatesLostContextOnce(t *testing.T) {
	platform := new(testutil.MockPlatform)
	platform.On("CreateContext", win, types.RendererZinkZFA).Return(surface.PlatformContext(100), nil).Once()
	platform.On("CreateContext", win, types.RendererZinkZFA).Return(surface.PlatformContext(200), nil).Once()
	platform.On("MakeCurrent", mock.Anything, win).Return(nil)
	platform.On("SwapBuffers", mock.Anything, win).Return(nil)
	platform.On("ContextLost", surface.PlatformContext(100)).Return(false).Once()
	platform.On("ContextLost", surface.PlatformContext(100)).Return(true).Once()
	platform.On("ContextLost", surface.PlatformContext(200)).Return(false)
	platform.On("DestroyContext", surface.PlatformContext(100)).Return(nil).Once()

	var hooked []surface.ContextHandle
	binding := surface.NewBinding(nil)
	r := surface.NewRouter(binding, platform, types.RendererZinkZFA, nil, nil,
		surface.WithInvalidationHook(func(h surface.ContextHandle) { hooked = append(hooked, h) }))

	require.NoError(t, binding.Bind(win, 100, 100))
	w, err := r.CreateWindow(100, 100, "game")
	require.NoError(t, err)
	c, err := r.CreateContext()
	require.NoError(t, err)
	require.NoError(t, r.MakeContextCurrent(c))

	// the context is lost before this swap
	require.NoError(t, r.SwapBuffers(w))
	require.NoError(t, r.SwapBuffers(w))
	require.NoError(t, r.SwapBuffers(w))

	select {
	case h := <-r.Invalidated():
		assert.Equal(t, c, h)
	case <-time.After(time.Second):
		t.Fatal("no invalidation delivered")
	}
	select {
	case h := <-r.Invalidated():
		t.Fatalf("unexpected second invalidation for %d", h)
	default:
	}
	assert.Equal(t, []surface.ContextHandle{c}, hooked)

	platform.AssertCalled(t, "SwapBuffers", surface.PlatformContext(200), win)
	platform.AssertExpectations(t)

	// the handle given to the game still works
	require.NoError(t, r.MakeContextCurrent(c))
}

func TestRouterRejectsAfterCrash(t *testing.T) {
	g := &gate{accepting: true}
	platform := testutil.NewMockPlatform(t)
	r := surface.NewRouter(surface.NewBinding(nil), platform, types.RendererGL4ES, nil, nil, surface.WithGate(g))

	w, err := r.CreateWindow(10, 10, "x")
	require.NoError(t, err)

	g.accepting = false
	assert.ErrorIs(t, r.SwapBuffers(w), errs.ErrSessionCrashed)
	_, err = r.CreateContext()
	assert.ErrorIs(t, err, errs.ErrSessionCrashed)
}

func TestRouterInvokeIsNoop(t *testing.T) {
	r := surface.NewRouter(surface.NewBinding(nil), testutil.NewMockPlatform(t), types.RendererGL4ES, nil, nil)
	assert.NoError(t, r.Invoke("glfwSetWindowIcon"))
	assert.NoError(t, r.Invoke("glfwSetWindowIcon"))
}

func TestRouterWindowLifecycle(t *testing.T) {
	r := surface.NewRouter(surface.NewBinding(nil), testutil.NewMockPlatform(t), types.RendererGL4ES, nil, nil)

	w, err := r.CreateWindow(10, 10, "x")
	require.NoError(t, err)
	assert.False(t, r.WindowShouldClose(w))

	r.RequestClose()
	assert.True(t, r.WindowShouldClose(w))

	require.NoError(t, r.DestroyWindow(w))
	assert.ErrorIs(t, r.DestroyWindow(w), surface.ErrUnknownWindow)
	assert.True(t, r.WindowShouldClose(w))

	assert.ErrorIs(t, r.MakeContextCurrent(99), surface.ErrUnknownContext)
	assert.ErrorIs(t, r.DestroyContext(99), surface.ErrUnknownContext)
}

func TestRouterReleaseUnblocksUnbind(t *testing.T) {
	binding := surface.NewBinding(nil)
	r := surface.NewRouter(binding, testutil.NewMockPlatform(t), types.RendererGL4ES, nil, nil)
	require.NoError(t, binding.Bind(win, 10, 10))

	c, err := r.CreateContext()
	require.NoError(t, err)
	require.NoError(t, r.MakeContextCurrent(c))

	done := make(chan error, 1)
	go func() { done <- binding.Unbind(context.Background()) }()

	require.NoError(t, r.MakeContextCurrent(0))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Unbind still waiting after the context was released")
	}
}

func TestRouterSwapInterval(t *testing.T) {
	platform := new(testutil.MockPlatform)
	platform.On("SetSwapInterval", 1).Return(nil).Once()
	r := surface.NewRouter(surface.NewBinding(nil), platform, types.RendererGL4ES, nil, nil)
	require.NoError(t, r.SwapInterval(1))
	platform.AssertExpectations(t)
}
