/*
Package tracing provides distributed tracing for debugging production issues.

# Overview

This package implements lightweight tracing for the remote-display server.
Each HTTP request gets a span, and each viewer connection gets a span that
lives for the whole session and ends with its outcome. Finished spans are
written to the structured log by a background collector.

# Features

- Trace context propagation via X-Trace-ID and X-Span-ID headers
- Span creation with parent-child relationships
- Gin middleware for automatic HTTP instrumentation
- Buffered span collection that never blocks the caller

# Usage

	tracer := tracing.New("rdesk", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "viewer.session")
	span.SetTag("peer_id", peerID.String())
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
