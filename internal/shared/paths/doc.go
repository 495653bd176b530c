// Package paths provides the on-device directory layout.
//
// Every component resolves locations through a Layout rooted at the app's
// home directory so provisioning, instance storage and the launch
// configuration agree on where things live.
//
// # Directory Structure
//
//	<home>/
//	  ├── dependencies/
//	  │   ├── jre21/          (Java 21 runtime, Build 41)
//	  │   ├── jre25/          (Java 25 runtime, Build 42+)
//	  │   ├── libs/
//	  │   │   ├── android-arm64-v8a/
//	  │   │   │   ├── lwjgl-3.2.3/  lwjgl-3.3.6/
//	  │   │   │   └── fmod-2.02.06/ fmod-2.02.24/ fmod-2.03.09/
//	  │   │   └── linux-x86_64/
//	  │   └── jars/           (agent + extra jars)
//	  └── instances/
//	      └── <name>/
//	          ├── instance.toml
//	          └── game/       (game files)
//
// # Usage
//
//	layout := paths.NewLayout("/data/user/0/com.zomdroid/files", cacheDir, libDir)
//	jre := layout.JRE(25)                 // <home>/dependencies/jre25
//	game := layout.Instance("b42").Game() // <home>/instances/b42/game
package paths
