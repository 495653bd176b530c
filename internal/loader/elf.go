package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverELF reads DT_NEEDED from each shared object and keeps the edges
// that stay inside the given set. Anything else is a system library.
func DiscoverELF(paths []string) ([]Library, error) {
	byName := make(map[string]int, len(paths))
	libs := make([]Library, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = len(libs)
		libs = append(libs, Library{Name: name, Path: p})
	}

	for i := range libs {
		needed, err := neededLibraries(libs[i].Path)
		if err != nil {
			return nil, err
		}
		for _, n := range needed {
			if _, ok := byName[n]; ok && n != libs[i].Name {
				libs[i].DependsOn = append(libs[i].DependsOn, n)
			}
		}
		sort.Strings(libs[i].DependsOn)
	}
	return libs, nil
}

func neededLibraries(path string) ([]string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ELF %s: %w", path, err)
	}
	defer f.Close()

	needed, err := f.DynString(elf.DT_NEEDED)
	if err != nil {
		return nil, fmt.Errorf("failed to read dynamic section of %s: %w", path, err)
	}
	return needed, nil
}

// GameLibraries returns the game's JNI libraries installed in gameDir. Each
// requires the Java_ methods its desktop build exports, so an Android
// build that lacks one fails the preflight rather than the first call.
func GameLibraries(gameDir string) ([]Library, error) {
	var libs []Library
	for _, name := range JNILibraries {
		path := filepath.Join(gameDir, "lib"+name+".so")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		syms, err := jniExports(path)
		if err != nil {
			return nil, err
		}
		libs = append(libs, Library{Name: filepath.Base(path), Path: path, Requires: syms})
	}
	return libs, nil
}

// jniExports lists the Java_ functions path defines
func jniExports(path string) ([]string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ELF %s: %w", path, err)
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dynamic symbols of %s: %w", path, err)
	}
	var out []string
	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		if strings.HasPrefix(s.Name, "Java_") {
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}
