// Package config provides 12-factor configuration for the bridge.
//
// Configuration is loaded from environment variables with defaults. The
// Android shell exports the same variables before handing control to the
// bridge, and CLI flags may override them for development.
//
// Configuration Sections:
//   - Storage: home, cache, native library and bundle directories
//   - Renderer: GL renderer and optional Vulkan driver
//   - Runtime: heap limit, readiness timeout, stdio mode
//   - Input: mouse-look sensitivity, pixel scale, control layout file
//   - Audio: output backend
//   - Monitor: low-memory warning threshold
//   - API: diagnostic control API listener and rate limits
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Environment Variables:
//   - ZOMDROID_HOME, ZOMDROID_CACHE_DIR, ZOMDROID_LIBRARY_DIR, ZOMDROID_BUNDLES_DIR
//   - ZOMDROID_RENDERER, ZOMDROID_VULKAN_DRIVER_NAME, ZOMDROID_RENDER_SCALE
//   - ZOMDROID_HEAP_MB, ZOMDROID_READY_TIMEOUT, ZOMDROID_USE_PTY
//   - ZOMDROID_MOUSE_SENSITIVITY, ZOMDROID_PIXEL_SCALE, ZOMDROID_LAYOUT
//   - ZOMDROID_AUDIO_API, ZOMDROID_LOW_MEMORY_MB
//   - ZOMDROID_API_ADDR, ZOMDROID_API_ENABLED, ZOMDROID_API_RPS, ZOMDROID_API_BURST
//   - LOG_LEVEL, LOG_DEV
package config
