//go:build !linux && !darwin

package runtime

import (
	"errors"
	goruntime "runtime"
)

var errNoJVM = errors.New("in-process JVM is not supported on " + goruntime.GOOS)

// JVM is unavailable on this platform
type JVM struct{}

// NewJVM creates a VM that always fails
func NewJVM() *JVM { return &JVM{} }

func (*JVM) Run(VMSpec, VMHooks) error { return errNoJVM }
func (*JVM) Exit(int) error            { return errNoJVM }
