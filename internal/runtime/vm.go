package runtime

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrUncaughtException is returned by VM.Run when main threw
	ErrUncaughtException = errors.New("uncaught exception in main")
	// ErrVMInUse is returned once a VM has run in this process. The JNI
	// invocation API allows one VM per process for its lifetime.
	ErrVMInUse = errors.New("a runtime VM already ran in this process")
)

// VM hosts the Java runtime inside the current process, so the bridge
// entry points it calls land in the same address space as the host
type VM interface {
	// Run creates the VM from spec and invokes the main class on the
	// calling thread. It returns when main returns. Hooks may fire on
	// other threads.
	Run(spec VMSpec, hooks VMHooks) error
	// Exit asks a running VM to exit with code
	Exit(code int) error
}

// VMSpec is what an in-process VM is created from
type VMSpec struct {
	LibJVM    string
	Options   []string
	MainClass string
	Args      []string
}

// VMHooks report VM lifecycle to the session
type VMHooks struct {
	// Started fires once the main class resolved, right before main runs
	Started func()
	// Exit fires when the runtime exits the process; it ends after the hook returns
	Exit func(code int)
	// Abort fires on a fatal VM error; the process aborts after the hook returns
	Abort func()
}

// LibJVM returns the server VM library of the selected JRE
func (c LaunchConfig) LibJVM() string {
	return filepath.Join(c.JavaHome, "lib", "server", "libjvm.so")
}

// VMSpec returns the in-process form of the launch. The main class uses
// JNI's slash-separated name.
func (c LaunchConfig) VMSpec() VMSpec {
	return VMSpec{
		LibJVM:    c.LibJVM(),
		Options:   append([]string(nil), c.JVMArgs...),
		MainClass: strings.ReplaceAll(c.MainClass, ".", "/"),
		Args:      append([]string(nil), c.Args...),
	}
}
