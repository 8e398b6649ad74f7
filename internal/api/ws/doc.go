// Package ws carries the viewer protocol over WebSocket.
//
// Each connection gets a Conn, which implements peer.Transport with a
// bounded queue of message batches drained by a writer goroutine. A batch
// is queued whole or refused with peer.ErrBackpressure, so a slow viewer
// never blocks the desktop event loop.
//
// The wire format is chosen by subprotocol negotiation:
//   - rdesk.cbor: binary CBOR envelopes (default)
//   - rdesk.json: text JSON envelopes
//
// Incoming messages are decoded on the reader goroutine and posted to the
// event loop, which owns every session.
//
// Example Usage:
//
//	handler := ws.NewHandler(host, ws.DefaultOptions(), logger)
//	handler.SetRecorder(metrics)
//	handler.SetTracer(tracer)
//	router.GET("/connect", handler.HandleConnection)
package ws
