package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s := gen.Generate().String()
		_, dup := seen[s]
		require.False(t, dup, "duplicate ULID %s", s)
		seen[s] = struct{}{}
	}
}

func TestTypedPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		prefix string
	}{
		{"session", NewSessionID().String(), SessionPrefix},
		{"instance", NewInstanceID().String(), InstancePrefix},
		{"binding", NewBindingID().String(), BindingPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.value, tt.prefix+"_"))
			prefix, raw, ok := Split(tt.value)
			require.True(t, ok)
			assert.Equal(t, tt.prefix, prefix)
			assert.Len(t, raw, 26)
			assert.True(t, IsValid(tt.value))
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts, err := Timestamp(NewSessionID().String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Timestamp("sess_not-a-ulid")
	assert.Error(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s := gen.WithPrefix(SessionPrefix)
				mu.Lock()
				seen[s] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}
