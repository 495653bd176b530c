//go:build !linux && !darwin

package loader

import (
	"errors"
	"runtime"
)

var errNoDynamicLinker = errors.New("dynamic loading is not supported on " + runtime.GOOS)

// DynamicLinker is unavailable on this platform
type DynamicLinker struct{}

// NewDynamicLinker creates a linker that always fails
func NewDynamicLinker() *DynamicLinker {
	return &DynamicLinker{}
}

func (DynamicLinker) Open(string) (Handle, error)            { return 0, errNoDynamicLinker }
func (DynamicLinker) Symbol(Handle, string) (uintptr, error) { return 0, errNoDynamicLinker }
func (DynamicLinker) Close(Handle) error                     { return errNoDynamicLinker }
func (DynamicLinker) StubAddr(Stub) (uintptr, error)         { return 0, errNoDynamicLinker }
