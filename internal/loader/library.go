package loader

import (
	"path/filepath"
	"strings"
)

// Handle is an opaque reference to an opened library
type Handle uintptr

// Library describes one shared object and what it needs
type Library struct {
	// Name identifies the library in the graph, usually its file name
	Name string
	Path string
	// DependsOn lists names of libraries that must be opened first
	DependsOn []string
	// Requires lists symbols that must resolve once the whole set is open
	Requires []string
}

// NewLibrary creates a library named after its file
func NewLibrary(path string, dependsOn ...string) Library {
	return Library{Name: filepath.Base(path), Path: path, DependsOn: dependsOn}
}

// Linker opens libraries and resolves symbols in them
type Linker interface {
	Open(path string) (Handle, error)
	Symbol(h Handle, name string) (uintptr, error)
	Close(h Handle) error
}

// StubLinker can produce callable addresses for stubbed symbols
type StubLinker interface {
	Linker
	StubAddr(s Stub) (uintptr, error)
}

// shortName strips the lib prefix and .so suffix from a library file name
func shortName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimPrefix(base, "lib")
	if i := strings.Index(base, ".so"); i >= 0 {
		base = base[:i]
	}
	return base
}
