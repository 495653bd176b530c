package loader

import "strings"

// Stub stands in for an export the hosted code must not reach
type Stub struct {
	// Library is the JNI short name, e.g. fmodintegration64
	Library string
	// Match is a substring of the symbol name
	Match string
	// Args is the count of pointer-sized arguments the replacement accepts
	Args int
}

// DefaultStubs replaces device enumeration so the engine uses its default output
var DefaultStubs = []Stub{
	{Library: "fmodintegration64", Match: "getAudioDevices", Args: 3},
}

// StubTable finds stubs by library and symbol
type StubTable struct {
	stubs []Stub
}

// NewStubTable creates a table from stubs
func NewStubTable(stubs []Stub) *StubTable {
	return &StubTable{stubs: stubs}
}

// Find returns the stub covering sym in the library at path
func (t *StubTable) Find(path, sym string) (Stub, bool) {
	if t == nil {
		return Stub{}, false
	}
	name := shortName(path)
	for _, s := range t.stubs {
		if s.Library == name && strings.Contains(sym, s.Match) {
			return s, true
		}
	}
	return Stub{}, false
}
