package paths

import (
	"fmt"
	"path/filepath"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/utils"
)

// Relative dependency locations, joined onto the home directory
const (
	Dependencies    = "dependencies"
	JRERoot         = Dependencies + "/jre"
	Libs            = Dependencies + "/libs"
	Jars            = Dependencies + "/jars"
	LibsLinuxX86_64 = Libs + "/linux-x86_64"
	LibsAndroid     = Libs + "/android-arm64-v8a"
	LibsLWJGL323    = LibsAndroid + "/lwjgl-3.2.3"
	LibsLWJGL336    = LibsAndroid + "/lwjgl-3.3.6"
	LibsFMOD20206   = LibsAndroid + "/fmod-2.02.06"
	LibsFMOD20224   = LibsAndroid + "/fmod-2.02.24"
	LibsFMOD20309   = LibsAndroid + "/fmod-2.03.09"
	JarSQLiteJDBC   = Jars + "/sqlite-jdbc-3.48.0.0.jar"
	JarAgent        = Jars + "/zomdroid-agent.jar"
)

// Instance layout
const (
	InstancesDir     = "instances"
	GameDir          = "game"
	InstanceFile     = "instance.toml"
	ManifestFileName = ".zomdroid-manifest.json"
)

// SystemLib64 is the platform's 64-bit system library directory
const SystemLib64 = "/system/lib64"

// Layout resolves absolute paths under the app's storage roots
type Layout struct {
	Home       string
	Cache      string
	LibraryDir string
}

// NewLayout creates a layout for the given roots
func NewLayout(home, cache, libraryDir string) Layout {
	return Layout{Home: home, Cache: cache, LibraryDir: libraryDir}
}

// Abs joins a home-relative path onto the home directory
func (l Layout) Abs(rel string) string {
	return filepath.Join(l.Home, rel)
}

// JRE returns the runtime directory for a Java major version
func (l Layout) JRE(major int) string {
	return filepath.Join(l.Home, fmt.Sprintf("%s%d", JRERoot, major))
}

// Instance returns paths for a named game instance
func (l Layout) Instance(name string) Instance {
	return Instance{Root: filepath.Join(l.Home, InstancesDir, name)}
}

// InstancesRoot returns the directory holding every instance
func (l Layout) InstancesRoot() string {
	return filepath.Join(l.Home, InstancesDir)
}

// Instance resolves paths inside one instance directory
type Instance struct {
	Root string
}

// Game returns the directory holding the game files
func (i Instance) Game() string {
	return filepath.Join(i.Root, GameDir)
}

// File returns the instance descriptor path
func (i Instance) File() string {
	return filepath.Join(i.Root, InstanceFile)
}

// ValidateInstanceName checks if a name is valid for path construction
func ValidateInstanceName(name string) error {
	if err := utils.ValidateFilenameStrict(name); err != nil {
		return fmt.Errorf("invalid instance name: %w", err)
	}
	if filepath.Clean(name) != name {
		return fmt.Errorf("invalid instance name: %q contains path components", name)
	}
	return nil
}
