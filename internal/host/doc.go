// Package host wires the bridge together for one device.
//
// Start acquires resources in order: provisioned bundles, the preflight
// library set, the audio bridge and finally the runtime session. A failure
// at any step releases what was already acquired. Shutdown releases them in
// reverse: the session is stopped, the libraries are unloaded and the
// scratch cache is cleared.
//
// Lifecycle changes from the runtime, the surface binding and the GPU
// context router are published on a hostshell.Bus.
package host
