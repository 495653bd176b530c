package surface

import "github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"

// PlatformContext is an opaque platform GPU context
type PlatformContext uintptr

// Platform is the mobile GPU/windowing API the bridge renders through
type Platform interface {
	CreateContext(win NativeWindow, renderer types.Renderer) (PlatformContext, error)
	MakeCurrent(ctx PlatformContext, win NativeWindow) error
	SwapBuffers(ctx PlatformContext, win NativeWindow) error
	SetSwapInterval(interval int) error
	DestroyContext(ctx PlatformContext) error
	ContextLost(ctx PlatformContext) bool
}
