package runtime

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
)

// Instance is one installed copy of the game and how to launch it
type Instance struct {
	ID                   id.InstanceID `toml:"id"`
	Name                 string        `toml:"name"`
	Preset               string        `toml:"preset"`
	BuildVersion         string        `toml:"build_version"`
	Home                 string        `toml:"home"`
	InstallationFinished bool          `toml:"installation_finished"`
	CreatedAt            time.Time     `toml:"created_at"`

	ClassPath       []string `toml:"class_path"`
	ExtraClassPath  []string `toml:"extra_class_path"`
	LibraryPath     []string `toml:"library_path"`
	FMODLibraryPath string   `toml:"fmod_library_path"`
	ExtraJVMArgs    []string `toml:"extra_jvm_args"`
	Args            []string `toml:"args"`
	MainClass       string   `toml:"main_class"`
	JavaAgentPath   string   `toml:"java_agent_path"`
	JavaAgentArgs   string   `toml:"java_agent_args"`
}

// GameDir returns the directory holding the game files
func (i *Instance) GameDir() string {
	return paths.Instance{Root: i.Home}.Game()
}

// JREMajor picks the Java runtime the build was made for
func (i *Instance) JREMajor() int {
	major := i.BuildVersion
	if dot := strings.IndexByte(major, '.'); dot >= 0 {
		major = major[:dot]
	}
	if v, err := strconv.Atoi(major); err == nil && v < 42 {
		return 21
	}
	return 25
}

const fatJar = "projectzomboid.jar"

// HasGameFiles reports whether the game's entry point is present
func (i *Instance) HasGameFiles() bool {
	if slices.Contains(i.ClassPath, fatJar) {
		return fileExists(filepath.Join(i.GameDir(), fatJar))
	}
	return fileExists(filepath.Join(i.GameDir(), filepath.FromSlash(i.MainClass)+".class"))
}

// HasLinuxFiles reports whether the desktop Linux natives were installed
func (i *Instance) HasLinuxFiles() bool {
	return fileExists(filepath.Join(i.GameDir(), "libPZBullet64.so"))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Preset is a known game build layout
type Preset struct {
	Name            string
	BuildVersion    string
	ClassPath       []string
	ExtraJars       []string
	LibraryPath     []string
	FMODLibraryPath string
	ExtraJVMArgs    []string
	Args            []string
	MainClass       string
	JavaAgentPath   string
	JavaAgentArgs   string
}

var build42ClassPath = []string{
	".",
	"commons-compress-1.27.1.jar",
	"commons-io-2.18.0.jar",
	"istack-commons-runtime.jar",
	"jassimp.jar",
	"guava-23.0.jar",
	"javacord-3.8.0-shaded.jar",
	"javax.activation-api.jar",
	"jaxb-api.jar",
	"jaxb-runtime.jar",
	"lwjgl.jar",
	"lwjgl-glfw.jar",
	"lwjgl-jemalloc.jar",
	"lwjgl-opengl.jar",
	"lwjgl_util.jar",
	"sqlite-jdbc-3.48.0.0.jar",
	"trove-3.0.3.jar",
	"uncommons-maths-1.2.3.jar",
	"imgui-binding-1.86.11-8-g3e33dde.jar",
	"commons-codec-1.10.jar",
	"javase-3.2.1.jar",
	"totp-1.0.jar",
	"core-3.2.1.jar",
}

var (
	PresetBuild42 = Preset{
		Name:            "Build 42",
		BuildVersion:    "42",
		ClassPath:       build42ClassPath,
		LibraryPath:     []string{paths.LibsAndroid, paths.LibsLWJGL336},
		FMODLibraryPath: paths.LibsFMOD20224,
		Args:            []string{"-novoip"},
		MainClass:       "zombie/gameStates/MainScreenState",
		JavaAgentPath:   paths.JarAgent,
	}

	PresetBuild4213 = Preset{
		Name:            "Build 42.13",
		BuildVersion:    "42",
		ClassPath:       slices.Insert(slices.Clone(build42ClassPath), 1, fatJar),
		LibraryPath:     []string{paths.LibsAndroid, paths.LibsLWJGL336},
		FMODLibraryPath: paths.LibsFMOD20224,
		Args:            []string{"-novoip"},
		MainClass:       "zombie.gameStates.MainScreenState",
		JavaAgentPath:   paths.JarAgent,
	}

	PresetBuild41 = Preset{
		Name:         "Build 41",
		BuildVersion: "41",
		ClassPath: []string{
			".",
			"commons-compress-1.18.jar",
			"istack-commons-runtime.jar",
			"jassimp.jar",
			"javacord-2.0.17-shaded.jar",
			"javax.activation-api.jar",
			"jaxb-api.jar",
			"jaxb-runtime.jar",
			"lwjgl.jar",
			"lwjgl-glfw.jar",
			"lwjgl-jemalloc.jar",
			"lwjgl-opengl.jar",
			"lwjgl_util.jar",
			"trove-3.0.3.jar",
			"uncommons-maths-1.2.3.jar",
		},
		ExtraJars:       []string{paths.JarSQLiteJDBC},
		LibraryPath:     []string{paths.LibsLWJGL323, paths.LibsAndroid},
		FMODLibraryPath: paths.LibsFMOD20206,
		Args:            []string{"-novoip"},
		MainClass:       "zombie/gameStates/MainScreenState",
		JavaAgentPath:   paths.JarAgent,
	}
)

// Presets returns the supported builds, newest first
func Presets() []Preset {
	return []Preset{PresetBuild42, PresetBuild4213, PresetBuild41}
}

// PresetByName finds a preset by name or bare version, e.g. "Build 41" or "41"
func PresetByName(name string) (Preset, bool) {
	want := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "Build"))
	for _, p := range Presets() {
		if strings.EqualFold(p.Name, name) || strings.TrimPrefix(p.Name, "Build ") == want {
			return p, true
		}
	}
	return Preset{}, false
}

// newInstance copies a preset into an instance rooted at home
func newInstance(name, home string, p Preset, now time.Time) *Instance {
	return &Instance{
		ID:              id.NewInstanceID(),
		Name:            name,
		Preset:          p.Name,
		BuildVersion:    p.BuildVersion,
		Home:            home,
		CreatedAt:       now.UTC(),
		ClassPath:       slices.Clone(p.ClassPath),
		ExtraClassPath:  slices.Clone(p.ExtraJars),
		LibraryPath:     slices.Clone(p.LibraryPath),
		FMODLibraryPath: p.FMODLibraryPath,
		ExtraJVMArgs:    slices.Clone(p.ExtraJVMArgs),
		Args:            slices.Clone(p.Args),
		MainClass:       p.MainClass,
		JavaAgentPath:   p.JavaAgentPath,
		JavaAgentArgs:   p.JavaAgentArgs,
	}
}
