/*
Package tracing times the phases of a launch and the requests served by the
control API.

Spans carry a trace ID so that the provision, load and start phases of one
launch can be found together in the logs. Finished spans are handed to a
buffered collector that logs them and keeps the most recent few for the
status endpoint.

	span, ctx := tracer.StartSpan(ctx, "provision")
	err := provisioner.ProvisionAll(ctx, bundles)
	span.Finish(err)
	tracer.Submit(span)

The X-Trace-ID and X-Span-ID headers continue a trace across HTTP calls.
*/
package tracing
