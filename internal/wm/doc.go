// Package wm implements the window manager that owns the desktop.
//
// The Manager keeps the window stack (front first), accumulates dirty
// areas pushed by windows and the layout reconciler, and on every frame
// tick composes the dirty part of the desktop and hands it to the
// compositor.
//
// Key Components:
//   - Stack: AddWindow, DropWindow, Raise, Lower, WindowAt
//   - Focus: SetFocusWindow with modal windows holding focus
//   - Pointer: Idle / DraggingMove / DraggingResize state machine
//   - Frames: Tick composes decoration, content and background
//   - Layout: ApplyLayout reconciles monitors and re-clamps windows
//
// All methods must be called from the server's event loop goroutine;
// the Manager does no locking.
//
// Example:
//
//	m, err := wm.New(wm.Config{Width: 1280, Height: 800}, logger)
//	w := m.AddWindow(window.Options{Title: "demo", Geometry: r, Decorated: true, Content: c})
//	if frame, ok := m.Tick(true); ok {
//	    registry.Repaint(frame)
//	}
package wm
