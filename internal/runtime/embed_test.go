package runtime

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVM runs main in place of a Java main class. Exit delivers the code
// to main, which plays the part of System.exit by calling the exit hook.
type fakeVM struct {
	main func(hooks VMHooks, exit <-chan int) error
	exit chan int
	spec VMSpec
}

func newFakeVM(main func(hooks VMHooks, exit <-chan int) error) *fakeVM {
	return &fakeVM{main: main, exit: make(chan int, 1)}
}

func (v *fakeVM) Run(spec VMSpec, hooks VMHooks) error {
	v.spec = spec
	return v.main(hooks, v.exit)
}

func (v *fakeVM) Exit(code int) error {
	v.exit <- code
	return nil
}

func embedConfig(t *testing.T) LaunchConfig {
	t.Setenv("ZOMDROID_EMBED_TEST", "")
	t.Setenv("JAVA_HOME", os.Getenv("JAVA_HOME"))
	return LaunchConfig{
		Instance:  "embedded",
		JavaHome:  "/data/jre/25",
		JVMArgs:   []string{"-Xmx1024m"},
		MainClass: "zombie.gameStates.MainScreenState",
		Args:      []string{"-nosteam"},
		Env:       []string{"ZOMDROID_EMBED_TEST=1"},
	}
}

func TestEmbedMainReturns(t *testing.T) {
	rec := &recorder{}
	m := NewManager(Settings{}, nil, nil, WithObserver(rec.observe))
	vm := newFakeVM(func(h VMHooks, _ <-chan int) error {
		h.Started()
		return nil
	})

	s, err := m.Embed(waitCtx(t), embedConfig(t), vm)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), s.Pid())

	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, StateExited, st.State)
	assert.Equal(t, 0, st.Code)
	assert.Equal(t, []string{"starting", "running", "exited"}, rec.get())

	assert.Equal(t, "/data/jre/25/lib/server/libjvm.so", vm.spec.LibJVM)
	assert.Equal(t, "zombie/gameStates/MainScreenState", vm.spec.MainClass)
	assert.Equal(t, []string{"-Xmx1024m"}, vm.spec.Options)
	assert.Equal(t, []string{"-nosteam"}, vm.spec.Args)
	assert.Equal(t, "1", os.Getenv("ZOMDROID_EMBED_TEST"))
	assert.Equal(t, "/data/jre/25", os.Getenv("JAVA_HOME"))
}

func TestEmbedOneVMPerProcess(t *testing.T) {
	m := NewManager(Settings{}, nil, nil)
	main := func(h VMHooks, _ <-chan int) error {
		h.Started()
		return nil
	}

	s, err := m.Embed(waitCtx(t), embedConfig(t), newFakeVM(main))
	require.NoError(t, err)
	_, err = s.Wait(waitCtx(t))
	require.NoError(t, err)

	_, err = m.Embed(waitCtx(t), embedConfig(t), newFakeVM(main))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVMInUse)
	assert.Equal(t, errs.RuntimeFault, errs.KindOf(err))
}

func TestEmbedExitHook(t *testing.T) {
	m := NewManager(Settings{}, nil, nil)
	s, err := m.Embed(waitCtx(t), embedConfig(t), newFakeVM(func(h VMHooks, _ <-chan int) error {
		h.Started()
		h.Exit(3)
		return nil
	}))
	require.NoError(t, err)

	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, StateExited, st.State)
	assert.Equal(t, 3, st.Code)
}

func TestEmbedAbortCrashes(t *testing.T) {
	rec := &recorder{}
	m := NewManager(Settings{}, nil, nil, WithObserver(rec.observe))
	s, err := m.Embed(waitCtx(t), embedConfig(t), newFakeVM(func(h VMHooks, _ <-chan int) error {
		h.Started()
		h.Abort()
		return nil
	}))
	require.NoError(t, err)

	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, StateCrashed, st.State)
	assert.Equal(t, "SIGABRT", st.Signal)
	assert.False(t, s.Accepting())
	assert.ErrorIs(t, Admit(s), errs.ErrSessionCrashed)
	assert.Equal(t, []string{"starting", "running", "crashed"}, rec.get())
}

func TestEmbedUncaughtException(t *testing.T) {
	m := NewManager(Settings{}, nil, nil)
	s, err := m.Embed(waitCtx(t), embedConfig(t), newFakeVM(func(h VMHooks, _ <-chan int) error {
		h.Started()
		return ErrUncaughtException
	}))
	require.NoError(t, err)

	st, err := s.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, StateCrashed, st.State)
	assert.Contains(t, st.Diagnostic, "uncaught exception")
	assert.False(t, s.Accepting())
}

func TestEmbedCreateFailure(t *testing.T) {
	m := NewManager(Settings{}, nil, nil)
	s, err := m.Embed(waitCtx(t), embedConfig(t), newFakeVM(func(VMHooks, <-chan int) error {
		return errors.New("JNI_CreateJavaVM failed: -1")
	}))
	require.Error(t, err)
	assert.Equal(t, errs.RuntimeFault, errs.KindOf(err))
	require.NotNil(t, s)
	assert.Equal(t, StateExited, s.State())
	assert.Equal(t, 1, s.Status().Code)
	assert.Contains(t, s.Status().Diagnostic, "JNI_CreateJavaVM")

	// the VM never started, so another attempt is allowed
	s, err = m.Embed(waitCtx(t), embedConfig(t), newFakeVM(func(h VMHooks, _ <-chan int) error {
		h.Started()
		return nil
	}))
	require.NoError(t, err)
	_, err = s.Wait(waitCtx(t))
	require.NoError(t, err)
}

func TestEmbedStopExitsVM(t *testing.T) {
	m := NewManager(Settings{}, nil, nil)
	s, err := m.Embed(waitCtx(t), embedConfig(t), newFakeVM(func(h VMHooks, exit <-chan int) error {
		h.Started()
		h.Exit(<-exit)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, StateRunning, s.State())

	st, err := m.Stop(waitCtx(t), s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateExited, st.State)
	assert.Equal(t, 0, st.Code)
	assert.Empty(t, m.List())
}

func TestEmbedCancelledContext(t *testing.T) {
	m := NewManager(Settings{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Embed(ctx, embedConfig(t), newFakeVM(func(h VMHooks, _ <-chan int) error {
		t.Error("VM must not run")
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.List())
}

func TestSessionFinishOnce(t *testing.T) {
	s := newSession("x", nil, 0)
	assert.True(t, s.finish(Status{State: StateExited, Code: 2}))
	assert.False(t, s.finish(Status{State: StateCrashed}))
	assert.Equal(t, 2, s.Status().Code)
}
