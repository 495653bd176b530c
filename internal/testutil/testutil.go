// Package testutil provides testify mocks for the bridge's external
// boundaries: the dynamic linker, the GPU platform and the audio engine.
package testutil

import (
	"testing"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/loader"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
	"github.com/stretchr/testify/mock"
)

// MockLinker is a mock implementation of loader.Linker
type MockLinker struct {
	mock.Mock
}

// Open mocks the Open method.
func (m *MockLinker) Open(path string) (loader.Handle, error) {
	args := m.Called(path)
	return args.Get(0).(loader.Handle), args.Error(1)
}

// Symbol mocks the Symbol method.
func (m *MockLinker) Symbol(h loader.Handle, name string) (uintptr, error) {
	args := m.Called(h, name)
	return args.Get(0).(uintptr), args.Error(1)
}

// Close mocks the Close method.
func (m *MockLinker) Close(h loader.Handle) error {
	return m.Called(h).Error(0)
}

// MockPlatform is a mock implementation of surface.Platform
type MockPlatform struct {
	mock.Mock
}

// CreateContext mocks the CreateContext method.
func (m *MockPlatform) CreateContext(win surface.NativeWindow, r types.Renderer) (surface.PlatformContext, error) {
	args := m.Called(win, r)
	return args.Get(0).(surface.PlatformContext), args.Error(1)
}

// MakeCurrent mocks the MakeCurrent method.
func (m *MockPlatform) MakeCurrent(ctx surface.PlatformContext, win surface.NativeWindow) error {
	return m.Called(ctx, win).Error(0)
}

// SwapBuffers mocks the SwapBuffers method.
func (m *MockPlatform) SwapBuffers(ctx surface.PlatformContext, win surface.NativeWindow) error {
	return m.Called(ctx, win).Error(0)
}

// SetSwapInterval mocks the SetSwapInterval method.
func (m *MockPlatform) SetSwapInterval(interval int) error {
	return m.Called(interval).Error(0)
}

// DestroyContext mocks the DestroyContext method.
func (m *MockPlatform) DestroyContext(ctx surface.PlatformContext) error {
	return m.Called(ctx).Error(0)
}

// ContextLost mocks the ContextLost method.
func (m *MockPlatform) ContextLost(ctx surface.PlatformContext) bool {
	return m.Called(ctx).Bool(0)
}

// MockEngine is a mock implementation of audio.Engine
type MockEngine struct {
	mock.Mock
}

// Init mocks the Init method.
func (m *MockEngine) Init(api types.AudioAPI) error {
	return m.Called(api).Error(0)
}

// Load mocks the Load method.
func (m *MockEngine) Load(name string) (audio.Sound, error) {
	args := m.Called(name)
	return args.Get(0).(audio.Sound), args.Error(1)
}

// Play mocks the Play method.
func (m *MockEngine) Play(s audio.Sound) (audio.Voice, error) {
	args := m.Called(s)
	return args.Get(0).(audio.Voice), args.Error(1)
}

// Stop mocks the Stop method.
func (m *MockEngine) Stop(v audio.Voice) error {
	return m.Called(v).Error(0)
}

// SetVolume mocks the SetVolume method.
func (m *MockEngine) SetVolume(v audio.Voice, volume float32) error {
	return m.Called(v, volume).Error(0)
}

// Release mocks the Release method.
func (m *MockEngine) Release(s audio.Sound) error {
	return m.Called(s).Error(0)
}

// Close mocks the Close method.
func (m *MockEngine) Close() error {
	return m.Called().Error(0)
}

// NewMockPlatform creates a platform whose calls succeed and whose contexts
// are never lost.
func NewMockPlatform(t *testing.T) *MockPlatform {
	t.Helper()
	m := new(MockPlatform)
	m.On("CreateContext", mock.Anything, mock.Anything).Return(surface.PlatformContext(1), nil).Maybe()
	m.On("MakeCurrent", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SwapBuffers", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SetSwapInterval", mock.Anything).Return(nil).Maybe()
	m.On("DestroyContext", mock.Anything).Return(nil).Maybe()
	m.On("ContextLost", mock.Anything).Return(false).Maybe()
	return m
}

// NewMockEngine creates an engine that initializes and releases cleanly.
// Load, Play and Stop need explicit expectations.
func NewMockEngine(t *testing.T) *MockEngine {
	t.Helper()
	m := new(MockEngine)
	m.On("Init", mock.Anything).Return(nil).Maybe()
	m.On("Release", mock.Anything).Return(nil).Maybe()
	m.On("Close").Return(nil).Maybe()
	return m
}

var (
	_ loader.Linker    = (*MockLinker)(nil)
	_ surface.Platform = (*MockPlatform)(nil)
	_ audio.Engine     = (*MockEngine)(nil)
)
