/*
Package runtime bootstraps the hosted Java runtime and tracks its lifecycle.

# Launch configuration

BuildLaunchConfig turns a game Instance and the device settings into the
java command line, working directory and environment. The JVM options keep
a fixed order: user home, temp dir, native library path, class path, heap,
extra options, java agent and finally the LWJGL GL library name for the
selected renderer.

# Sessions

Manager.Start spawns the runtime with its output on a pseudo-terminal and
blocks until the session is Running or has failed. A session moves
monotonically through

	Starting -> Running -> Exited(code) | Crashed(signal)

and never leaves a terminal state. After a crash the session stops
accepting bridge calls; bridges consult it through the Gate interface.
Restart policy belongs to the caller.
*/
package runtime
