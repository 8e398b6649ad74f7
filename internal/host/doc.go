// Package host runs the desktop event loop.
//
// A Host owns the window manager, the viewer sessions and the shared
// clipboard. All of them are single-threaded: connection goroutines reach
// them only through Post, and a frame ticker composes damage and hands it
// to every session at the configured rate. The durations of the last 120
// ticks are summarized in Status.
package host
