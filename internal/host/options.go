package host

import (
	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/loader"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/provision"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
)

// LibrarySource picks the libraries to preflight for an instance from the
// provisioned bundles
type LibrarySource func(inst *runtime.Instance, installed []Installed) ([]loader.Library, error)

// Installed pairs a bundle with the manifest of its install
type Installed struct {
	Bundle   provision.Bundle
	Manifest *provision.Manifest
	// Files and Bytes are measured on disk after provisioning
	Files int64
	Bytes int64
}

// Option configures a Host
type Option func(*Host)

// WithLinker replaces the platform dynamic linker
func WithLinker(l loader.Linker) Option {
	return func(h *Host) { h.linker = l }
}

// WithPlatform enables the windowing router on top of p
func WithPlatform(p surface.Platform) Option {
	return func(h *Host) { h.platform = p }
}

// WithVM runs sessions on vm inside this process instead of spawning a
// java child. The bridges are only reachable from the runtime this way.
func WithVM(vm runtime.VM) Option {
	return func(h *Host) { h.vm = vm }
}

// WithAudioEngine sets the engine behind the audio bridge. Without one the
// bridge runs silent.
func WithAudioEngine(e audio.Engine) Option {
	return func(h *Host) { h.engine = e }
}

// WithBundles replaces the standard bundle set
func WithBundles(b []provision.Bundle) Option {
	return func(h *Host) { h.bundles = b }
}

// WithLibrarySource replaces ELF discovery of the preflight set
func WithLibrarySource(fn LibrarySource) Option {
	return func(h *Host) { h.libraries = fn }
}

// WithProvisionOptions passes options through to the provisioner
func WithProvisionOptions(opts ...provision.Option) Option {
	return func(h *Host) { h.provisionOpts = append(h.provisionOpts, opts...) }
}
