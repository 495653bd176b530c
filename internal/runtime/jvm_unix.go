//go:build linux || darwin

package runtime

import (
	"errors"
	"fmt"
	goruntime "runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

const (
	jniOK        = 0
	jniVersion16 = 0x00010006
)

// JNINativeInterface function table slots
const (
	jniFindClass             = 6
	jniExceptionDescribe     = 16
	jniExceptionClear        = 17
	jniGetStaticMethodID     = 113
	jniCallStaticVoidMethodA = 143
	jniNewStringUTF          = 167
	jniNewObjectArray        = 172
	jniSetObjectArrayElement = 174
	jniExceptionCheck        = 228
)

// JNIInvokeInterface function table slots
const (
	jvmDestroyJavaVM       = 3
	jvmAttachCurrentThread = 4
	jvmDetachCurrentThread = 5
)

type javaVMOption struct {
	optionString *byte
	extraInfo    uintptr
}

type javaVMInitArgs struct {
	version            int32
	nOptions           int32
	options            *javaVMOption
	ignoreUnrecognized uint8
}

// JVM runs HotSpot inside this process through the JNI invocation API
type JVM struct {
	mu sync.Mutex
	vm uintptr
}

// NewJVM creates an in-process VM runner
func NewJVM() *JVM {
	return &JVM{}
}

// The exit and abort hooks are C function pointers handed to the VM as
// options. Callbacks are a scarce resource, so they are made once and
// dispatch to whichever hooks the latest Run installed.
var (
	hookOnce    sync.Once
	exitHook    uintptr
	abortHook   uintptr
	hooksMu     sync.Mutex
	activeHooks VMHooks
)

func installHooks(h VMHooks) (exit, abort uintptr) {
	hooksMu.Lock()
	activeHooks = h
	hooksMu.Unlock()

	hookOnce.Do(func() {
		exitHook = purego.NewCallback(func(code uintptr) uintptr {
			if fn := currentHooks().Exit; fn != nil {
				fn(int(int32(code)))
			}
			return 0
		})
		abortHook = purego.NewCallback(func() uintptr {
			if fn := currentHooks().Abort; fn != nil {
				fn()
			}
			return 0
		})
	})
	return exitHook, abortHook
}

func currentHooks() VMHooks {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	return activeHooks
}

func cString(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

// Run must be called on a locked OS thread: the JNIEnv it creates is only
// valid on that thread.
func (j *JVM) Run(spec VMSpec, hooks VMHooks) error {
	lib, err := purego.Dlopen(spec.LibJVM, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", spec.LibJVM, err)
	}
	create, err := purego.Dlsym(lib, "JNI_CreateJavaVM")
	if err != nil {
		return fmt.Errorf("failed to find JNI_CreateJavaVM: %w", err)
	}

	exit, abort := installHooks(hooks)

	var pin goruntime.Pinner
	defer pin.Unpin()
	option := func(s string, extra uintptr) javaVMOption {
		p := cString(s)
		pin.Pin(p)
		return javaVMOption{optionString: p, extraInfo: extra}
	}
	opts := make([]javaVMOption, 0, len(spec.Options)+2)
	for _, o := range spec.Options {
		opts = append(opts, option(o, 0))
	}
	opts = append(opts, option("exit", exit), option("abort", abort))
	pin.Pin(&opts[0])

	args := &javaVMInitArgs{version: jniVersion16, nOptions: int32(len(opts)), options: &opts[0]}
	vm, env := new(uintptr), new(uintptr)
	pin.Pin(args)
	pin.Pin(vm)
	pin.Pin(env)

	rc, _, _ := purego.SyscallN(create,
		uintptr(unsafe.Pointer(vm)), uintptr(unsafe.Pointer(env)), uintptr(unsafe.Pointer(args)))
	if int32(rc) != jniOK {
		return fmt.Errorf("JNI_CreateJavaVM failed: %d", int32(rc))
	}

	j.mu.Lock()
	j.vm = *vm
	j.mu.Unlock()

	e := jniEnv(*env)
	cls := e.findClass(spec.MainClass)
	if cls == 0 {
		e.clearException()
		return fmt.Errorf("main class %s not found", spec.MainClass)
	}
	main := e.staticMethod(cls, "main", "([Ljava/lang/String;)V")
	if main == 0 {
		e.clearException()
		return fmt.Errorf("%s has no static main(String[])", spec.MainClass)
	}
	argv := e.stringArray(spec.Args)

	if hooks.Started != nil {
		hooks.Started()
	}
	e.callStaticVoid(cls, main, argv)
	if e.exceptionPending() {
		e.describeException()
		e.clearException()
		return ErrUncaughtException
	}

	// waits for the game's remaining non-daemon threads
	invoke(*vm, jvmDestroyJavaVM)
	return nil
}

// Exit calls System.exit on a thread attached for the purpose. The exit
// hook runs before the process ends.
func (j *JVM) Exit(code int) error {
	j.mu.Lock()
	vm := j.vm
	j.mu.Unlock()
	if vm == 0 {
		return errors.New("VM is not running")
	}

	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	var pin goruntime.Pinner
	defer pin.Unpin()
	env := new(uintptr)
	pin.Pin(env)
	if rc := invoke(vm, jvmAttachCurrentThread, uintptr(unsafe.Pointer(env)), 0); int32(rc) != jniOK {
		return fmt.Errorf("AttachCurrentThread failed: %d", int32(rc))
	}
	defer invoke(vm, jvmDetachCurrentThread)

	e := jniEnv(*env)
	cls := e.findClass("java/lang/System")
	if cls == 0 {
		e.clearException()
		return errors.New("java.lang.System not found")
	}
	exit := e.staticMethod(cls, "exit", "(I)V")
	if exit == 0 {
		e.clearException()
		return errors.New("System.exit not found")
	}
	e.callStaticVoid(cls, exit, uintptr(uint32(int32(code))))
	return nil
}

// slot reads entry n of the function table behind a JNI interface pointer
func slot(iface uintptr, n int) uintptr {
	table := *(*unsafe.Pointer)(unsafe.Pointer(iface))
	return *(*uintptr)(unsafe.Add(table, n*int(unsafe.Sizeof(uintptr(0)))))
}

func invoke(vm uintptr, n int, args ...uintptr) uintptr {
	r, _, _ := purego.SyscallN(slot(vm, n), append([]uintptr{vm}, args...)...)
	return r
}

// jniEnv is a JNIEnv pointer, valid only on the thread it belongs to
type jniEnv uintptr

func (e jniEnv) call(n int, args ...uintptr) uintptr {
	r, _, _ := purego.SyscallN(slot(uintptr(e), n), append([]uintptr{uintptr(e)}, args...)...)
	return r
}

func (e jniEnv) findClass(name string) uintptr {
	p := cString(name)
	r := e.call(jniFindClass, uintptr(unsafe.Pointer(p)))
	goruntime.KeepAlive(p)
	return r
}

func (e jniEnv) staticMethod(cls uintptr, name, sig string) uintptr {
	n, s := cString(name), cString(sig)
	r := e.call(jniGetStaticMethodID, cls, uintptr(unsafe.Pointer(n)), uintptr(unsafe.Pointer(s)))
	goruntime.KeepAlive(n)
	goruntime.KeepAlive(s)
	return r
}

func (e jniEnv) stringArray(values []string) uintptr {
	arr := e.call(jniNewObjectArray, uintptr(len(values)), e.findClass("java/lang/String"), 0)
	for i, v := range values {
		p := cString(v)
		str := e.call(jniNewStringUTF, uintptr(unsafe.Pointer(p)))
		goruntime.KeepAlive(p)
		e.call(jniSetObjectArrayElement, arr, uintptr(i), str)
	}
	return arr
}

// callStaticVoid passes each argument as one jvalue
func (e jniEnv) callStaticVoid(cls, method uintptr, args ...uintptr) {
	values := append(make([]uintptr, 0, len(args)+1), args...)
	values = append(values, 0)
	e.call(jniCallStaticVoidMethodA, cls, method, uintptr(unsafe.Pointer(&values[0])))
	goruntime.KeepAlive(values)
}

func (e jniEnv) exceptionPending() bool {
	return e.call(jniExceptionCheck)&0xff != 0
}

func (e jniEnv) describeException() { e.call(jniExceptionDescribe) }
func (e jniEnv) clearException()    { e.call(jniExceptionClear) }
