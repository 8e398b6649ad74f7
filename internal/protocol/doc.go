// Package protocol defines the session message set exchanged with viewers.
//
// Every message is a tagged variant: a Go struct whose Type names it on the
// wire. Frames carry an envelope of type, channel and body. Two codecs are
// provided and selected by WebSocket subprotocol:
//   - rdesk.cbor: binary frames, CBOR core deterministic encoding
//   - rdesk.json: text frames, JSON
//
// Decoded messages are always value types (ClientHello, not *ClientHello),
// so a single type switch dispatches them.
package protocol
