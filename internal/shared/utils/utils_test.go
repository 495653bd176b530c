package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherAlgorithms(t *testing.T) {
	tests := []struct {
		algorithm HashAlgorithm
		hexLen    int
	}{
		{SHA256, 64},
		{BLAKE2b, 64},
		{CRC32IEEE, 8},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			h := NewHasher(tt.algorithm)
			sum := h.Hash([]byte("zomdroid"))
			assert.Len(t, sum, tt.hexLen)
			assert.Equal(t, sum, h.Hash([]byte("zomdroid")))
			assert.NotEqual(t, sum, h.Hash([]byte("zomdroid!")))
		})
	}
}

func TestHashFileMatchesTee(t *testing.T) {
	h := DefaultHasher()
	path := filepath.Join(t.TempDir(), "lib.so")
	data := bytes.Repeat([]byte{0x7f, 'E', 'L', 'F'}, 1024)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	fromFile, err := h.HashFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, sum := h.TeeWriter(&buf)
	_, err = w.Write(data)
	require.NoError(t, err)

	assert.Equal(t, fromFile, sum())
	assert.Equal(t, data, buf.Bytes())
}

func TestValidateFilenameStrict(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"Build 42 save", false},
		{"", true},
		{"   ", true},
		{".hidden", true},
		{"a/b", true},
		{"50%", true},
		{"this-name-is-way-too-long-for-an-instance-dir", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilenameStrict(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithinRoot(t *testing.T) {
	assert.True(t, WithinRoot("/data/jre", "/data/jre/lib/libjvm.so"))
	assert.True(t, WithinRoot("/data/jre", "/data/jre"))
	assert.False(t, WithinRoot("/data/jre", "/data/jre25/lib"))
	assert.False(t, WithinRoot("/data/jre", "/data/jre/../etc"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.25, Clamp(0.1, 0.25, 1.0))
	assert.Equal(t, 1.0, Clamp(3.0, 0.25, 1.0))
	assert.Equal(t, 128, Clamp(128, 0, 255))
}
