package provision

import (
	"path/filepath"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
)

// Bundle names a source archive and the directory it installs into
type Bundle struct {
	Name   string
	Source string
	Dest   string
}

// Standard bundle archive names shipped with the app
const (
	BundleJRE21 = "jre21.tar.xz"
	BundleJRE25 = "jre25.tar.xz"
	BundleLibs  = "libs.tar.xz"
	BundleJars  = "jars.tar"
)

// StandardBundles returns the bundle set every install needs, in install order
func StandardBundles(bundlesDir string, layout paths.Layout) []Bundle {
	return []Bundle{
		{Name: BundleJRE21, Source: filepath.Join(bundlesDir, BundleJRE21), Dest: layout.JRE(21)},
		{Name: BundleJRE25, Source: filepath.Join(bundlesDir, BundleJRE25), Dest: layout.JRE(25)},
		{Name: BundleLibs, Source: filepath.Join(bundlesDir, BundleLibs), Dest: layout.Abs(paths.Libs)},
		{Name: BundleJars, Source: filepath.Join(bundlesDir, BundleJars), Dest: layout.Abs(paths.Jars)},
	}
}
