// Command zomdroid provisions, launches and supervises game instances from
// a shell on the device.
//
// Subcommands:
//   - provision, verify: install and check the bundled runtimes
//   - instance create|list: manage game instances
//   - layout validate|default: work with control layouts
//   - launch <instance>: run an instance until it exits
//   - serve: run the control API, optionally with --instance
//
// Configuration comes from ZOMDROID_* environment variables. SIGINT and
// SIGTERM stop the game, unload libraries and clear the cache before exit.
package main
