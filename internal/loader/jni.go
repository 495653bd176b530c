package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// JNILibraries are the game's native libraries that ship Android builds
var JNILibraries = []string{
	"PZClipper64",
	"PZBullet64",
	"PZBulletNoOpenGL64",
	"Lighting64",
	"PZPathFind64",
	"PZPopMan64",
	"fmodintegration64",
	"zomdroidtest",
	"RakNet64",
	"ZNetNoSteam",
}

// AndroidLibDir is where a game install keeps its native Android builds
const AndroidLibDir = "android/arm64-v8a"

// noRedirect lists JNI libraries whose classes only work from the original path
var noRedirect = map[string]bool{"fmodintegration64": true}

// IsJNILibrary reports whether path names one of the game's JNI libraries
func IsJNILibrary(path string) bool {
	_, ok := jniName(path)
	return ok
}

func jniName(path string) (string, bool) {
	short := shortName(path)
	for _, name := range JNILibraries {
		if short == name {
			return name, true
		}
	}
	return "", false
}

// Resolver maps library paths requested by the runtime onto the files to open
type Resolver struct {
	gameDir string

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates a resolver for a game install directory
func NewResolver(gameDir string) *Resolver {
	return &Resolver{gameDir: gameDir, cache: make(map[string]string)}
}

// Resolve prefers the Android build of a JNI library when the game has one
func (r *Resolver) Resolve(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resolved, ok := r.cache[path]; ok {
		return resolved
	}

	resolved := path
	if name, ok := jniName(path); ok && !noRedirect[name] && r.gameDir != "" {
		candidate := filepath.Join(r.gameDir, AndroidLibDir, filepath.Base(path))
		if _, err := os.Stat(candidate); err == nil {
			resolved = candidate
		}
	}

	r.cache[path] = resolved
	return resolved
}

// JNISymbol is a native method name split into its Java parts
type JNISymbol struct {
	// Class uses slash separators, e.g. zombie/core/Core
	Class  string
	Method string
	// Signature holds only the argument list, e.g. (Ljava/lang/String;I), or
	// is empty for short names
	Signature string
}

// ErrNotJNISymbol indicates a name without the Java_ prefix
var ErrNotJNISymbol = errors.New("not a JNI symbol")

// ParseJNISymbol decodes a mangled JNI export name
func ParseJNISymbol(sym string) (JNISymbol, error) {
	rest, ok := strings.CutPrefix(sym, "Java_")
	if !ok {
		return JNISymbol{}, ErrNotJNISymbol
	}

	var (
		parts   []string
		cur     strings.Builder
		sig     strings.Builder
		inSig   bool
		unicode = func(i int) (rune, error) {
			if i+4 > len(rest) {
				return 0, fmt.Errorf("truncated unicode escape in %s", sym)
			}
			v, err := strconv.ParseUint(rest[i:i+4], 16, 32)
			if err != nil {
				return 0, fmt.Errorf("bad unicode escape in %s: %w", sym, err)
			}
			return rune(v), nil
		}
	)

	out := &cur
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c != '_' {
			out.WriteByte(c)
			continue
		}
		if i+1 >= len(rest) {
			return JNISymbol{}, fmt.Errorf("trailing underscore in %s", sym)
		}

		switch next := rest[i+1]; next {
		case '0':
			r, err := unicode(i + 2)
			if err != nil {
				return JNISymbol{}, err
			}
			out.WriteRune(r)
			i += 5
		case '1':
			out.WriteByte('_')
			i++
		case '2', '3':
			if !inSig {
				return JNISymbol{}, fmt.Errorf("escape _%c outside signature in %s", next, sym)
			}
			if next == '2' {
				out.WriteByte(';')
			} else {
				out.WriteByte('[')
			}
			i++
		case '_':
			if inSig {
				return JNISymbol{}, fmt.Errorf("second signature separator in %s", sym)
			}
			inSig = true
			parts = append(parts, cur.String())
			out = &sig
			i++
		default:
			if inSig {
				out.WriteByte('/')
			} else {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		}
	}
	if !inSig {
		parts = append(parts, cur.String())
	}

	if len(parts) < 2 || parts[len(parts)-1] == "" {
		return JNISymbol{}, fmt.Errorf("JNI name %s has no method", sym)
	}

	js := JNISymbol{
		Class:  strings.Join(parts[:len(parts)-1], "/"),
		Method: parts[len(parts)-1],
	}
	if inSig {
		js.Signature = "(" + sig.String() + ")"
	}
	return js, nil
}

// signatureCacheSize bounds the decoded-symbol ring
const signatureCacheSize = 32

type cacheEntry struct {
	sym    string
	parsed JNISymbol
}

// SignatureCache keeps recently decoded JNI names in a fixed ring
type SignatureCache struct {
	mu      sync.Mutex
	entries [signatureCacheSize]cacheEntry
	next    int
}

// Get returns a cached decoding
func (c *SignatureCache) Get(sym string) (JNISymbol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.sym != "" && e.sym == sym {
			return e.parsed, true
		}
	}
	return JNISymbol{}, false
}

// Put stores a decoding, evicting the oldest when full
func (c *SignatureCache) Put(sym string, parsed JNISymbol) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.next] = cacheEntry{sym: sym, parsed: parsed}
	c.next = (c.next + 1) % signatureCacheSize
}

// Parse decodes sym, consulting the ring first
func (c *SignatureCache) Parse(sym string) (JNISymbol, error) {
	if js, ok := c.Get(sym); ok {
		return js, nil
	}
	js, err := ParseJNISymbol(sym)
	if err != nil {
		return JNISymbol{}, err
	}
	c.Put(sym, js)
	return js, nil
}
