/*
Package monitoring provides bridge metrics and resource monitoring.

# Overview

Metrics are exported through Prometheus client_golang and mirrored into a
small snapshot for the control API's JSON status. A Metrics value is safe to
share between subsystems, and every recording method tolerates a nil
receiver so components can run without instrumentation in tests.

# Features

- Provisioning duration, extracted bytes and idempotent skips
- Library load counts and load failures
- Runtime session lifecycle (running, exited, crashed)
- Surface swaps: presented, buffered while unbound, coalesced
- Input events per type and queue drops
- Audio engine calls, failures and degraded mode
- Available system memory from /proc/meminfo
- Control API request metrics

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to the control API router
	router.Use(monitoring.Middleware(metrics))

	// Time an operation
	timer := monitoring.NewTimer(metrics, "provision", "jre25")
	// ... extract ...
	timer.Stop("ok")

	// Watch available memory while a session runs
	mon := monitoring.NewMemoryMonitor(monitoring.MemoryConfig{ThresholdMB: 300}, metrics, logger)
	go mon.Run(ctx)

# Metrics Endpoint

The control API exposes the default registry at /metrics via promhttp.
*/
package monitoring
