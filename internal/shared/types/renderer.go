package types

import (
	"fmt"
	"os"
	"strings"
)

// Renderer selects the GL implementation loaded into the hosted runtime
type Renderer string

const (
	RendererGL4ES      Renderer = "GL4ES"
	RendererZinkOSMesa Renderer = "ZINK_OSMESA"
	RendererZinkZFA    Renderer = "ZINK_ZFA"
)

// Renderers lists every supported renderer
var Renderers = []Renderer{RendererGL4ES, RendererZinkOSMesa, RendererZinkZFA}

// ParseRenderer converts an environment value into a Renderer
func ParseRenderer(s string) (Renderer, error) {
	switch r := Renderer(strings.TrimSpace(s)); r {
	case RendererGL4ES, RendererZinkOSMesa, RendererZinkZFA:
		return r, nil
	case "":
		return "", fmt.Errorf("renderer is not set")
	default:
		return "", fmt.Errorf("unrecognized renderer %q", s)
	}
}

// LibName returns the GL library LWJGL must load for this renderer
func (r Renderer) LibName() string {
	switch r {
	case RendererZinkZFA:
		return "libzfa.so"
	case RendererZinkOSMesa:
		return "libOSMesa.so"
	default:
		return "libgl4es.so"
	}
}

// UsesZink reports whether the renderer translates GL onto Vulkan
func (r Renderer) UsesZink() bool {
	return r == RendererZinkOSMesa || r == RendererZinkZFA
}

// String returns the renderer name
func (r Renderer) String() string {
	return string(r)
}

// VulkanDriver selects the Vulkan ICD used by the zink renderers
type VulkanDriver string

const (
	VulkanSystemDefault VulkanDriver = "SYSTEM_DEFAULT"
	VulkanFreedreno     VulkanDriver = "FREEDRENO"
)

// ParseVulkanDriver converts a config value into a VulkanDriver
func ParseVulkanDriver(s string) (VulkanDriver, error) {
	switch d := VulkanDriver(strings.TrimSpace(s)); d {
	case "", VulkanSystemDefault:
		return VulkanSystemDefault, nil
	case VulkanFreedreno:
		return d, nil
	default:
		return "", fmt.Errorf("unrecognized vulkan driver %q", s)
	}
}

// LibName returns the driver library, empty for the system default
func (d VulkanDriver) LibName() string {
	if d == VulkanFreedreno {
		return "libvulkan_freedreno.so"
	}
	return ""
}

// kgslDevice exists on Adreno GPUs where freedreno/turnip can drive the GPU directly
var kgslDevice = "/dev/kgsl-3d0"

// DetectRenderer picks the default renderer and driver for this device
func DetectRenderer() (Renderer, VulkanDriver) {
	if _, err := os.Stat(kgslDevice); err == nil {
		return RendererZinkZFA, VulkanFreedreno
	}
	return RendererGL4ES, VulkanSystemDefault
}

// AudioAPI selects the platform audio output backend
type AudioAPI string

const (
	AudioAAudio AudioAPI = "AAUDIO"
	AudioOpenSL AudioAPI = "OPENSL"
)

// ParseAudioAPI converts a config value into an AudioAPI
func ParseAudioAPI(s string) (AudioAPI, error) {
	switch a := AudioAPI(strings.ToUpper(strings.TrimSpace(s))); a {
	case "", AudioAAudio:
		return AudioAAudio, nil
	case AudioOpenSL:
		return a, nil
	default:
		return "", fmt.Errorf("unrecognized audio api %q", s)
	}
}
