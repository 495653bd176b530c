/*
Package loader opens the provisioned native libraries in dependency order.

Libraries form a directed graph where an edge runs from a dependency to the
library that needs it. The graph refuses edges that would close a cycle, so
a cyclic set is reported as errs.CycleError instead of looping. Loading
walks a stable topological order, opens each library exactly once through a
Linker and then checks every required symbol against the loaded set. Any
failure closes what was already opened, newest first.

The production Linker is backed by dlopen/dlsym through purego. Game JNI
libraries are redirected to their native Android builds when the game ships
them, and a small stub table covers entry points that must not reach the
platform.
*/
package loader
