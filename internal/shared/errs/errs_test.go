package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("startup: %w", New(ProvisioningError, "extract", "libs.tar.xz", ErrCorruptArchive))

	assert.Equal(t, ProvisioningError, KindOf(err))
	assert.True(t, errors.Is(err, ErrCorruptArchive))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestKindFatal(t *testing.T) {
	tests := []struct {
		kind  Kind
		fatal bool
	}{
		{ProvisioningError, true},
		{LoadError, true},
		{RuntimeFault, false},
		{BridgeTranslationError, false},
		{EngineInitFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.fatal, tt.kind.Fatal())
		})
	}
}

func TestSymbolAndCycleErrors(t *testing.T) {
	symErr := New(LoadError, "resolve", "libPZBullet64.so", &SymbolError{Library: "libPZBullet64.so", Symbol: "JNI_OnLoad"})
	assert.True(t, errors.Is(symErr, ErrUnresolvedSymbol))

	var se *SymbolError
	require.True(t, errors.As(symErr, &se))
	assert.Equal(t, "libPZBullet64.so", se.Library)
	assert.Contains(t, symErr.Error(), "JNI_OnLoad")

	cycErr := &CycleError{Cycle: []string{"a", "b", "a"}}
	assert.True(t, errors.Is(cycErr, ErrCyclicDependency))
	assert.Contains(t, cycErr.Error(), "a b a")
}
