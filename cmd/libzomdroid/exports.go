//go:build android && cgo

package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	int32_t type;
	int32_t code;
	int32_t pressed;
	double x;
	double y;
	float value;
	uint8_t hat;
	uint32_t ch;
} zomdroid_event;

typedef struct {
	uintptr_t (*create_context)(uintptr_t window, const char *renderer);
	int32_t (*make_current)(uintptr_t ctx, uintptr_t window);
	int32_t (*swap_buffers)(uintptr_t ctx, uintptr_t window);
	int32_t (*set_swap_interval)(int32_t interval);
	int32_t (*destroy_context)(uintptr_t ctx);
	int32_t (*context_lost)(uintptr_t ctx);
} zomdroid_platform;

typedef struct {
	int32_t (*init)(const char *api);
	int64_t (*load)(const char *name);
	int64_t (*play)(uint64_t sound);
	int32_t (*stop)(uint64_t voice);
	int32_t (*set_volume)(uint64_t voice, float volume);
	int32_t (*release)(uint64_t sound);
	int32_t (*close)(void);
} zomdroid_audio_engine;

typedef void (*zomdroid_event_callback)(const char *type, const char *subject, const char *detail, int32_t code);

static uintptr_t platform_create_context(zomdroid_platform *p, uintptr_t w, const char *r) { return p->create_context(w, r); }
static int32_t platform_make_current(zomdroid_platform *p, uintptr_t c, uintptr_t w) { return p->make_current(c, w); }
static int32_t platform_swap_buffers(zomdroid_platform *p, uintptr_t c, uintptr_t w) { return p->swap_buffers(c, w); }
static int32_t platform_set_swap_interval(zomdroid_platform *p, int32_t i) { return p->set_swap_interval(i); }
static int32_t platform_destroy_context(zomdroid_platform *p, uintptr_t c) { return p->destroy_context(c); }
static int32_t platform_context_lost(zomdroid_platform *p, uintptr_t c) { return p->context_lost(c); }

static int32_t engine_init(zomdroid_audio_engine *e, const char *api) { return e->init(api); }
static int64_t engine_load(zomdroid_audio_engine *e, const char *name) { return e->load(name); }
static int64_t engine_play(zomdroid_audio_engine *e, uint64_t s) { return e->play(s); }
static int32_t engine_stop(zomdroid_audio_engine *e, uint64_t v) { return e->stop(v); }
static int32_t engine_set_volume(zomdroid_audio_engine *e, uint64_t v, float vol) { return e->set_volume(v, vol); }
static int32_t engine_release(zomdroid_audio_engine *e, uint64_t s) { return e->release(s); }
static int32_t engine_close(zomdroid_audio_engine *e) { return e->close(); }

static void invoke_callback(zomdroid_event_callback cb, const char *t, const char *s, const char *d, int32_t c) { cb(t, s, d, c); }
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
)

// cPlatform forwards surface.Platform calls to a native vtable. The vtable
// must outlive the bridge.
type cPlatform struct {
	vt *C.zomdroid_platform
}

func status(op string, rc C.int32_t) error {
	if rc != 0 {
		return fmt.Errorf("%s failed: %d", op, int32(rc))
	}
	return nil
}

func (p cPlatform) CreateContext(win surface.NativeWindow, r types.Renderer) (surface.PlatformContext, error) {
	name := C.CString(r.String())
	defer C.free(unsafe.Pointer(name))
	ctx := C.platform_create_context(p.vt, C.uintptr_t(win), name)
	if ctx == 0 {
		return 0, fmt.Errorf("create %s context failed", r)
	}
	return surface.PlatformContext(ctx), nil
}

func (p cPlatform) MakeCurrent(ctx surface.PlatformContext, win surface.NativeWindow) error {
	return status("make current", C.platform_make_current(p.vt, C.uintptr_t(ctx), C.uintptr_t(win)))
}

func (p cPlatform) SwapBuffers(ctx surface.PlatformContext, win surface.NativeWindow) error {
	return status("swap buffers", C.platform_swap_buffers(p.vt, C.uintptr_t(ctx), C.uintptr_t(win)))
}

func (p cPlatform) SetSwapInterval(interval int) error {
	return status("swap interval", C.platform_set_swap_interval(p.vt, C.int32_t(interval)))
}

func (p cPlatform) DestroyContext(ctx surface.PlatformContext) error {
	return status("destroy context", C.platform_destroy_context(p.vt, C.uintptr_t(ctx)))
}

func (p cPlatform) ContextLost(ctx surface.PlatformContext) bool {
	return C.platform_context_lost(p.vt, C.uintptr_t(ctx)) != 0
}

// cEngine forwards audio.Engine calls to a native vtable
type cEngine struct {
	vt *C.zomdroid_audio_engine
}

func (e cEngine) Init(api types.AudioAPI) error {
	name := C.CString(string(api))
	defer C.free(unsafe.Pointer(name))
	return status("audio init", C.engine_init(e.vt, name))
}

func (e cEngine) Load(name string) (audio.Sound, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	s := C.engine_load(e.vt, cname)
	if s < 0 {
		return 0, fmt.Errorf("load %s failed: %d", name, int64(s))
	}
	return audio.Sound(s), nil
}

func (e cEngine) Play(s audio.Sound) (audio.Voice, error) {
	v := C.engine_play(e.vt, C.uint64_t(s))
	if v < 0 {
		return 0, fmt.Errorf("play failed: %d", int64(v))
	}
	return audio.Voice(v), nil
}

func (e cEngine) Stop(v audio.Voice) error {
	return status("stop", C.engine_stop(e.vt, C.uint64_t(v)))
}

func (e cEngine) SetVolume(v audio.Voice, volume float32) error {
	return status("set volume", C.engine_set_volume(e.vt, C.uint64_t(v), C.float(volume)))
}

func (e cEngine) Release(s audio.Sound) error {
	return status("release", C.engine_release(e.vt, C.uint64_t(s)))
}

func (e cEngine) Close() error {
	return status("audio close", C.engine_close(e.vt))
}

//export zomdroid_init
func zomdroid_init(home *C.char, platform *C.zomdroid_platform, engine *C.zomdroid_audio_engine) C.int32_t {
	cfg := config.LoadOrDefault()
	if home != nil {
		cfg.Storage.Home = C.GoString(home)
	}
	var p surface.Platform
	if platform != nil {
		p = cPlatform{vt: platform}
	}
	var e audio.Engine
	if engine != nil {
		e = cEngine{vt: engine}
	}
	return C.int32_t(code(bridge.init(cfg, p, e, runtime.NewJVM())))
}

//export zomdroid_deinit
func zomdroid_deinit() C.int32_t {
	return C.int32_t(code(bridge.deinit()))
}

//export zomdroid_start
func zomdroid_start(instance *C.char) C.int32_t {
	return C.int32_t(code(bridge.start(C.GoString(instance))))
}

//export zomdroid_stop
func zomdroid_stop() C.int32_t {
	return C.int32_t(code(bridge.stop()))
}

//export zomdroid_set_event_callback
func zomdroid_set_event_callback(cb C.zomdroid_event_callback) C.int32_t {
	if cb == nil {
		return C.int32_t(code(bridge.setCallback(nil)))
	}
	return C.int32_t(code(bridge.setCallback(func(e hostshell.Event) {
		t, s, d := C.CString(string(e.Type)), C.CString(e.Subject), C.CString(e.Detail)
		defer C.free(unsafe.Pointer(t))
		defer C.free(unsafe.Pointer(s))
		defer C.free(unsafe.Pointer(d))
		C.invoke_callback(cb, t, s, d, C.int32_t(e.Code))
	})))
}

//export zomdroid_surface_init
func zomdroid_surface_init(window C.uintptr_t, width, height C.int32_t) C.int32_t {
	return C.int32_t(code(bridge.surfaceInit(uintptr(window), int(width), int(height))))
}

//export zomdroid_surface_deinit
func zomdroid_surface_deinit() C.int32_t {
	return C.int32_t(code(bridge.surfaceDeinit()))
}

//export zomdroid_event_pointer_down
func zomdroid_event_pointer_down(id C.int32_t, x, y C.float) {
	if t := bridge.translator(); t != nil {
		t.PointerDown(int(id), float64(x), float64(y))
	}
}

//export zomdroid_event_pointer_move
func zomdroid_event_pointer_move(id C.int32_t, x, y C.float) {
	if t := bridge.translator(); t != nil {
		t.PointerMove(int(id), float64(x), float64(y))
	}
}

//export zomdroid_event_pointer_up
func zomdroid_event_pointer_up(id C.int32_t) {
	if t := bridge.translator(); t != nil {
		t.PointerUp(int(id))
	}
}

//export zomdroid_event_cancel
func zomdroid_event_cancel() {
	if t := bridge.translator(); t != nil {
		t.Cancel()
	}
}

//export zomdroid_event_scroll
func zomdroid_event_scroll(dy C.float) {
	if t := bridge.translator(); t != nil {
		t.Scroll(float64(dy))
	}
}

//export zomdroid_event_key
func zomdroid_event_key(key C.int32_t, pressed C.int32_t) {
	if t := bridge.translator(); t != nil {
		t.Key(int(key), pressed != 0)
	}
}

//export zomdroid_event_char
func zomdroid_event_char(ch C.uint32_t) {
	if t := bridge.translator(); t != nil {
		t.Char(rune(ch))
	}
}

//export zomdroid_event_commit_text
func zomdroid_event_commit_text(text *C.char) {
	if t := bridge.translator(); t != nil {
		t.CommitText(C.GoString(text))
	}
}

//export zomdroid_event_delete_text
func zomdroid_event_delete_text(n C.int32_t) {
	if t := bridge.translator(); t != nil {
		t.DeleteText(int(n))
	}
}

//export zomdroid_event_joystick_connected
func zomdroid_event_joystick_connected(connected C.int32_t) {
	t := bridge.translator()
	switch {
	case t == nil:
	case connected != 0:
		t.ConnectJoystick()
	default:
		t.DisconnectJoystick()
	}
}

//export zomdroid_poll_events
func zomdroid_poll_events(buf *C.zomdroid_event, capacity C.int32_t) C.int32_t {
	if buf == nil || capacity <= 0 {
		return 0
	}
	events := make([]input.Event, int(capacity))
	n, err := bridge.poll(events)
	if err != nil {
		return C.int32_t(code(err))
	}
	out := unsafe.Slice(buf, int(capacity))
	for i, e := range events[:n] {
		out[i] = C.zomdroid_event{
			_type:   C.int32_t(e.Type),
			code:    C.int32_t(e.Code),
			pressed: boolToC(e.Pressed),
			x:       C.double(e.X),
			y:       C.double(e.Y),
			value:   C.float(e.Value),
			hat:     C.uint8_t(e.Hat),
			ch:      C.uint32_t(e.Char),
		}
	}
	return C.int32_t(n)
}

func boolToC(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}

//export zomdroid_create_window
func zomdroid_create_window(width, height C.int32_t, title *C.char) C.int64_t {
	r, err := bridge.router()
	if err != nil {
		return C.int64_t(code(err))
	}
	h, err := r.CreateWindow(int(width), int(height), C.GoString(title))
	if err != nil {
		return C.int64_t(code(err))
	}
	return C.int64_t(h)
}

//export zomdroid_create_context
func zomdroid_create_context() C.int64_t {
	r, err := bridge.router()
	if err != nil {
		return C.int64_t(code(err))
	}
	h, err := r.CreateContext()
	if err != nil {
		return C.int64_t(code(err))
	}
	return C.int64_t(h)
}

//export zomdroid_make_context_current
func zomdroid_make_context_current(ctx C.uint64_t) C.int32_t {
	r, err := bridge.router()
	if err != nil {
		return C.int32_t(code(err))
	}
	return C.int32_t(code(r.MakeContextCurrent(surface.ContextHandle(ctx))))
}

//export zomdroid_swap_buffers
func zomdroid_swap_buffers(window C.uint64_t) C.int32_t {
	r, err := bridge.router()
	if err != nil {
		return C.int32_t(code(err))
	}
	return C.int32_t(code(r.SwapBuffers(surface.WindowHandle(window))))
}

//export zomdroid_get_framebuffer_size
func zomdroid_get_framebuffer_size(window C.uint64_t, width, height *C.int32_t) {
	r, err := bridge.router()
	if err != nil {
		return
	}
	w, h := r.GetFramebufferSize(surface.WindowHandle(window))
	if width != nil {
		*width = C.int32_t(w)
	}
	if height != nil {
		*height = C.int32_t(h)
	}
}

//export zomdroid_get_window_size
func zomdroid_get_window_size(window C.uint64_t, width, height *C.int32_t) {
	w, h := bridge.windowSize(surface.WindowHandle(window))
	if width != nil {
		*width = C.int32_t(w)
	}
	if height != nil {
		*height = C.int32_t(h)
	}
}

//export zomdroid_window_should_close
func zomdroid_window_should_close(window C.uint64_t) C.int32_t {
	return boolToC(bridge.shouldClose(surface.WindowHandle(window)))
}

//export zomdroid_destroy_window
func zomdroid_destroy_window(window C.uint64_t) C.int32_t {
	return C.int32_t(code(bridge.destroyWindow(surface.WindowHandle(window))))
}

//export zomdroid_destroy_context
func zomdroid_destroy_context(ctx C.uint64_t) C.int32_t {
	return C.int32_t(code(bridge.destroyContext(surface.ContextHandle(ctx))))
}

//export zomdroid_swap_interval
func zomdroid_swap_interval(interval C.int32_t) C.int32_t {
	return C.int32_t(code(bridge.swapInterval(int(interval))))
}

//export zomdroid_unsupported_call
func zomdroid_unsupported_call(name *C.char) C.int32_t {
	return C.int32_t(code(bridge.unsupported(C.GoString(name))))
}

//export zomdroid_audio_load
func zomdroid_audio_load(name *C.char) C.int64_t {
	b, err := bridge.audio()
	if err != nil {
		return C.int64_t(code(err))
	}
	s, err := b.Load(C.GoString(name))
	if err != nil {
		return C.int64_t(code(err))
	}
	return C.int64_t(s)
}

//export zomdroid_audio_play
func zomdroid_audio_play(sound C.uint64_t) C.int64_t {
	b, err := bridge.audio()
	if err != nil {
		return C.int64_t(code(err))
	}
	v, err := b.Play(audio.Sound(sound))
	if err != nil {
		return C.int64_t(code(err))
	}
	return C.int64_t(v)
}

//export zomdroid_audio_stop
func zomdroid_audio_stop(voice C.uint64_t) C.int32_t {
	b, err := bridge.audio()
	if err != nil {
		return C.int32_t(code(err))
	}
	return C.int32_t(code(b.Stop(audio.Voice(voice))))
}

//export zomdroid_audio_set_volume
func zomdroid_audio_set_volume(voice C.uint64_t, volume C.float) C.int32_t {
	b, err := bridge.audio()
	if err != nil {
		return C.int32_t(code(err))
	}
	return C.int32_t(code(b.SetVolume(audio.Voice(voice), float32(volume))))
}

//export zomdroid_audio_dispose
func zomdroid_audio_dispose(sound C.uint64_t) C.int32_t {
	b, err := bridge.audio()
	if err != nil {
		return C.int32_t(code(err))
	}
	return C.int32_t(code(b.Dispose(audio.Sound(sound))))
}
