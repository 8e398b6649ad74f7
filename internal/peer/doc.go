// Package peer implements the per-viewer session protocol engine.
//
// A Session walks Connecting, Negotiating, AwaitingChannels and Active,
// and ends in Closed. Negotiation picks one render mode per viewer:
//   - raw: tile batches of at most 64x64 pixels
//   - surface: frame markers around banded surface bits
//   - graphics: per-monitor remote surfaces with acknowledged frames
//
// While Active a bitmask of suspend conditions gates transmission. Damage
// keeps accumulating while suspended, throttled or backpressured and is
// sent on the next tick that can go out.
//
// Sessions and the Registry are owned by the server event loop and are not
// safe for concurrent use.
package peer
