// Package audio forwards the game's sound calls to a bundled engine.
//
// The engine is opaque. If it fails to initialize the bridge runs silent
// for the rest of the session, and repeated call failures open a circuit
// breaker so audio degrades to a no-op until the engine recovers.
package audio
