// Package surface maps the desktop windowing and GL context contract onto a
// platform surface that can appear and disappear at any time.
//
// A Binding holds the current native window. The render thread brackets its
// use with Acquire and Release; the host shell calls Bind when the platform
// surface is created and Unbind when it is destroyed. Unbind blocks until the
// render thread lets go, so the render path never sees a window that has
// already been torn down.
//
// Swaps issued while no surface is bound are buffered: the first is kept,
// later ones are coalesced into it, and it is presented on the next Bind.
//
// Router implements Windowing on top of a Binding and a Platform. Context
// handles handed to the game stay valid when the platform context is lost
// and re-created; each loss is reported once on Invalidated.
package surface
