// Package errs defines the bridge's error taxonomy.
//
// Every failure the bridge surfaces belongs to one Kind:
//   - ProvisioningError: archive corruption or storage exhaustion (fatal to startup)
//   - LoadError: unresolved symbol or cyclic dependency (fatal to startup)
//   - RuntimeFault: crash or signal raised by the hosted runtime (reported, never recovered)
//   - BridgeTranslationError: an unsupported windowing/GPU call (logged, call is no-op'd)
//   - EngineInitFailed: the audio engine could not start (audio becomes silent)
//
// Example Usage:
//
//	err := errs.New(errs.ProvisioningError, "extract", "jre25.tar.xz", errs.ErrCorruptArchive)
//	if errors.Is(err, errs.ErrCorruptArchive) {
//		// retry is safe: no manifest was written
//	}
//	if errs.KindOf(err).Fatal() {
//		// abort startup
//	}
package errs
