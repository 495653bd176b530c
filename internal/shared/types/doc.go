// Package types provides shared value types used across bridge components.
//
// Core Types:
//   - Renderer: GL implementation the hosted runtime renders through
//   - VulkanDriver: optional Vulkan ICD for the zink renderers
//   - AudioAPI: output backend handed to the audio engine
//
// Example Usage:
//
//	r, err := types.ParseRenderer(os.Getenv("ZOMDROID_RENDERER"))
//	if err != nil {
//	    return err
//	}
//	jvmArgs = append(jvmArgs, "-Dorg.lwjgl.opengl.libname="+r.LibName())
package types
