package runtime

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
)

// Settings are the device-wide inputs to a launch
type Settings struct {
	Layout       paths.Layout
	Renderer     types.Renderer
	VulkanDriver types.VulkanDriver
	HeapMB       int
	// JavaBinary is relative to the selected JRE directory
	JavaBinary string
}

// LaunchConfig is everything needed to start the runtime process
type LaunchConfig struct {
	Instance      string
	Java          string
	JavaHome      string
	Dir           string
	JVMArgs       []string
	MainClass     string
	Args          []string
	LDLibraryPath string
	Env           []string
}

// Argv returns the full command line
func (c LaunchConfig) Argv() []string {
	argv := make([]string, 0, len(c.JVMArgs)+len(c.Args)+2)
	argv = append(argv, c.Java)
	argv = append(argv, c.JVMArgs...)
	// the java launcher wants a binary name, JNI FindClass wants slashes
	if c.MainClass != "" {
		argv = append(argv, strings.ReplaceAll(c.MainClass, "/", "."))
	}
	argv = append(argv, c.Args...)
	return argv
}

// Environ returns the variables added on top of the parent environment
func (c LaunchConfig) Environ() []string {
	env := make([]string, 0, len(c.Env)+2)
	env = append(env, c.Env...)
	env = append(env, "JAVA_HOME="+c.JavaHome, "LD_LIBRARY_PATH="+c.LDLibraryPath)
	return env
}

// BuildLaunchConfig assembles the command line and environment for inst
func BuildLaunchConfig(inst *Instance, s Settings) (LaunchConfig, error) {
	if inst.MainClass == "" {
		return LaunchConfig{}, fmt.Errorf("instance %s has no main class", inst.Name)
	}
	if s.Renderer == "" {
		s.Renderer = types.RendererGL4ES
	}
	if s.VulkanDriver == "" {
		s.VulkanDriver = types.VulkanSystemDefault
	}
	if s.JavaBinary == "" {
		s.JavaBinary = "bin/java"
	}

	home := s.Layout.Home
	abs := func(rel string) string { return filepath.Join(home, rel) }

	libs := make([]string, len(inst.LibraryPath))
	for i, p := range inst.LibraryPath {
		libs[i] = abs(p)
	}
	javaLibraryPath := strings.Join(libs, ":")

	jars := make([]string, len(inst.ExtraClassPath))
	for i, p := range inst.ExtraClassPath {
		jars[i] = abs(p)
	}

	jvmArgs := []string{
		"-Duser.home=" + inst.Home,
		"-Djava.io.tmpdir=" + s.Layout.Cache,
		"-Djava.library.path=" + javaLibraryPath + ":.",
		"-Djava.class.path=" + strings.Join(inst.ClassPath, ":") + ":" + strings.Join(jars, ":"),
	}
	if s.HeapMB > 0 {
		jvmArgs = append(jvmArgs, fmt.Sprintf("-Xmx%dm", s.HeapMB))
	}
	jvmArgs = append(jvmArgs, inst.ExtraJVMArgs...)
	if inst.JavaAgentPath != "" {
		agent := "-javaagent:" + abs(inst.JavaAgentPath)
		if inst.JavaAgentArgs != "" {
			agent += "=" + inst.JavaAgentArgs
		}
		jvmArgs = append(jvmArgs, agent)
	}
	jvmArgs = append(jvmArgs, "-Dorg.lwjgl.opengl.libname="+s.Renderer.LibName())

	javaHome := s.Layout.JRE(inst.JREMajor())
	ldPath := strings.Join([]string{
		s.Layout.LibraryDir,
		paths.SystemLib64,
		filepath.Join(javaHome, "lib"),
		filepath.Join(javaHome, "lib", "server"),
		javaLibraryPath,
	}, ":")

	env := []string{
		"GALLIUM_DRIVER=zink",
		"ZOMDROID_CACHE_DIR=" + s.Layout.Cache,
		"ZOMDROID_RENDERER=" + s.Renderer.String(),
	}
	if s.VulkanDriver != types.VulkanSystemDefault {
		env = append(env, "ZOMDROID_VULKAN_DRIVER_NAME="+s.VulkanDriver.LibName())
	}
	if inst.FMODLibraryPath != "" {
		env = append(env, "ZOMDROID_FMOD_LIBRARY_PATH="+abs(inst.FMODLibraryPath))
	}

	return LaunchConfig{
		Instance:      inst.Name,
		Java:          filepath.Join(javaHome, s.JavaBinary),
		JavaHome:      javaHome,
		Dir:           inst.GameDir(),
		JVMArgs:       jvmArgs,
		MainClass:     inst.MainClass,
		Args:          append([]string(nil), inst.Args...),
		LDLibraryPath: ldPath,
		Env:           env,
	}, nil
}
