// Package window models top-level desktop windows and their decorations.
//
// A Window owns its geometry and visibility but never its pixels: content
// comes from an external ContentProvider and input leaves through an
// InputSink. Every geometry or visibility change pushes the affected outer
// area to the Host so the window manager can repaint it on the next tick.
//
// Geometry:
//   - Inner: content rectangle in desktop coordinates
//   - Outer: inner grown by the decoration margins (equal when undecorated)
//
// Decoration:
//   - Title bar with label, spacer and close button laid out left-to-right
//   - Eight resize grab regions on the frame ring plus one move region
//   - Cached rendered image, invalidated on resize, title or theme change
package window
