package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxInstanceNameLength bounds instance directory names
const MaxInstanceNameLength = 40

// strictFilenamePattern rejects / \ : * ? " < > | %
var strictFilenamePattern = regexp.MustCompile(`^[^\\/:*?"<>|%]+$`)

// ValidateFilenameStrict checks that name is usable as a single directory name
func ValidateFilenameStrict(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !strictFilenamePattern.MatchString(name) {
		return fmt.Errorf("name %q contains forbidden characters", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q cannot start with a dot", name)
	}
	if len(name) > MaxInstanceNameLength {
		return fmt.Errorf("name %q exceeds %d characters", name, MaxInstanceNameLength)
	}
	return nil
}

// WithinRoot reports whether target resolves inside root
func WithinRoot(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// Clamp bounds v to [lo, hi]
func Clamp[T ~int | ~int32 | ~float32 | ~float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
