// Command libzomdroid builds the bridge as a shared library for the Android
// launcher:
//
//	CGO_ENABLED=1 GOOS=android GOARCH=arm64 go build -buildmode=c-shared -o libzomdroid.so ./cmd/libzomdroid
//
// The launcher registers its EGL platform and audio engine as function
// tables in zomdroid_init, forwards surface lifecycle and touch input, and
// polls translated desktop events from the game's input thread. The game's
// JVM is created inside this library's process, so the natives it loads
// call back into the same bridge. Calls
// return 0 on success and a negative status otherwise; -2 means the game
// crashed and the bridge no longer accepts calls.
package main
