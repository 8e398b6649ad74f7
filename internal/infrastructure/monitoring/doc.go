/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the
remote-display server, tracking HTTP requests, viewer sessions, update
traffic and frame tick timing. Metrics live on a private registry so tests
can create as many collectors as they like.

# Features

- HTTP request metrics (latency, throughput, size)
- Viewer session metrics (active peers, close outcomes)
- Update traffic per render mode (frames, rectangles, bytes)
- Encoder failures per scheme
- Frame tick stage durations and dirty/reduced areas
- WebSocket message and backpressure counters

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Sessions report through peer.Observer
	session := peer.New(cfg, peer.Deps{Observer: metrics})

	// Time tick stages
	timer := monitoring.NewTimer(metrics, "compose")
	// ... compose ...
	timer.Stop()

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
