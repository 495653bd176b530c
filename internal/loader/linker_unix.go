//go:build linux || darwin

package loader

import (
	"fmt"
	"path/filepath"

	"github.com/ebitengine/purego"
)

// DynamicLinker opens libraries with the platform dynamic loader
type DynamicLinker struct{}

// NewDynamicLinker creates a linker backed by dlopen
func NewDynamicLinker() *DynamicLinker {
	return &DynamicLinker{}
}

// Open loads path with every symbol bound and visible to later libraries
func (DynamicLinker) Open(path string) (Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	h, err := purego.Dlopen(abs, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", abs, err)
	}
	return Handle(h), nil
}

// Symbol looks up name in h
func (DynamicLinker) Symbol(h Handle, name string) (uintptr, error) {
	return purego.Dlsym(uintptr(h), name)
}

// Close releases h
func (DynamicLinker) Close(h Handle) error {
	return purego.Dlclose(uintptr(h))
}

// StubAddr returns a C-callable function that returns NULL
func (DynamicLinker) StubAddr(s Stub) (uintptr, error) {
	switch s.Args {
	case 0:
		return purego.NewCallback(func() uintptr { return 0 }), nil
	case 1:
		return purego.NewCallback(func(uintptr) uintptr { return 0 }), nil
	case 2:
		return purego.NewCallback(func(uintptr, uintptr) uintptr { return 0 }), nil
	case 3:
		return purego.NewCallback(func(uintptr, uintptr, uintptr) uintptr { return 0 }), nil
	default:
		return 0, fmt.Errorf("stub for %s takes %d arguments, at most 3 supported", s.Match, s.Args)
	}
}
