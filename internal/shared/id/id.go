// Package id provides ULID generation for bridge entities.
//
// IDs are lexicographically sortable and carry a type prefix so logs stay
// readable when several subsystems report on the same launch:
//   - sess_*: hosted runtime sessions
//   - inst_*: game instances
//   - bind_*: surface bindings
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Typed IDs
// ============================================================================

// SessionID identifies a hosted runtime session
type SessionID string

// InstanceID identifies a game instance
type InstanceID string

// BindingID identifies one surface binding generation
type BindingID string

const (
	SessionPrefix  = "sess"
	InstancePrefix = "inst"
	BindingPrefix  = "bind"
)

// ============================================================================
// Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic entropy
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix creates a prefixed ULID string
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// ============================================================================
// Typed constructors
// ============================================================================

func NewSessionID() SessionID   { return SessionID(Default().WithPrefix(SessionPrefix)) }
func NewInstanceID() InstanceID { return InstanceID(Default().WithPrefix(InstancePrefix)) }
func NewBindingID() BindingID   { return BindingID(Default().WithPrefix(BindingPrefix)) }

func (id SessionID) String() string  { return string(id) }
func (id InstanceID) String() string { return string(id) }
func (id BindingID) String() string  { return string(id) }

// Split separates a prefixed ID into its prefix and ULID part
func Split(s string) (prefix string, raw string, ok bool) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return "", s, false
	}
	return s[:i], s[i+1:], true
}

// IsValid reports whether s is a ULID, with or without a prefix
func IsValid(s string) bool {
	if _, raw, ok := Split(s); ok {
		s = raw
	}
	_, err := ulid.Parse(s)
	return err == nil
}

// Timestamp extracts the creation time from a ULID, with or without a prefix
func Timestamp(s string) (time.Time, error) {
	if _, raw, ok := Split(s); ok {
		s = raw
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
