package wm

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/display"
	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/GriffinCanCode/rdesk/internal/geom"
	"github.com/GriffinCanCode/rdesk/internal/window"
)

// ApplyLayout reconciles the monitor set with a viewer-proposed layout.
// Reapplying the current layout changes nothing and forces no redraw.
func (m *Manager) ApplyLayout(entries []display.Entry) (display.Plan, error) {
	plan, err := display.Reconcile(m.monitors, entries)
	if err != nil {
		return plan, err
	}
	if plan.Empty() {
		return plan, nil
	}
	prev := m.monitors

	if plan.BoundsChanged {
		desktop, err := framebuffer.New(plan.Bounds.Dx(), plan.Bounds.Dy())
		if err != nil {
			return plan, fmt.Errorf("reallocate desktop: %w", err)
		}
		m.desktop = desktop
	}

	for _, idx := range plan.Removed {
		m.compositor.RemoveMonitor(idx)
	}
	for _, mon := range plan.Monitors {
		if mon.Index < len(prev) && prev[mon.Index].Local == mon.Local && !plan.BoundsChanged {
			continue
		}
		if err := m.compositor.ResizeMonitor(mon.Index, mon.Local); err != nil {
			return plan, fmt.Errorf("resize shadow %d: %w", mon.Index, err)
		}
	}
	m.monitors = plan.Monitors

	if plan.BoundsChanged {
		m.pending.Add(m.desktop.Bounds())
	} else {
		for _, idx := range plan.Changed {
			m.pending.Add(m.monitors[idx].Local)
		}
		for _, idx := range plan.Added {
			m.pending.Add(m.monitors[idx].Local)
		}
	}

	for _, w := range m.stack {
		m.clamp(w)
	}

	m.log.Info("Monitor layout applied",
		zap.Int("monitors", len(plan.Monitors)),
		zap.Ints("added", plan.Added),
		zap.Ints("removed", plan.Removed),
		zap.Ints("changed", plan.Changed),
		zap.Stringer("bounds", plan.Bounds))

	for _, l := range m.monitorListeners {
		l.MonitorsChanged(plan)
	}
	return plan, nil
}

// clamp makes a window follow its monitor after a layout change
func (m *Manager) clamp(w *window.Window) {
	idx := w.Monitor()
	if idx < 0 || idx >= len(m.monitors) {
		idx = max(display.Nearest(m.monitors, w.Outer()), 0)
		w.SetMonitor(idx)
	}
	mon := m.monitors[idx].Local

	switch w.State() {
	case window.StateMaximized:
		w.SetState(window.StateMaximized, w.InnerFor(mon))
		return
	case window.StateFullScreen:
		w.SetState(window.StateFullScreen, mon)
		return
	}

	outer := w.Outer()
	for _, other := range m.monitors {
		if outer.Overlaps(other.Local) {
			return
		}
	}
	// Off every monitor: pull it back to the top-left of its monitor.
	w.SetOuterGeometry(outer.Add(mon.Min.Sub(outer.Min)))
}

// SetWindowState maximizes, minimizes, fullscreens or restores a window on
// the monitor it occupies
func (m *Manager) SetWindowState(w *window.Window, state window.State) {
	idx := max(display.Nearest(m.monitors, w.Outer()), 0)
	if state == window.StateNormal {
		idx = w.Monitor()
	}
	w.SetMonitor(idx)

	var target image.Rectangle
	if idx < len(m.monitors) {
		switch state {
		case window.StateMaximized:
			target = w.InnerFor(m.monitors[idx].Local)
		case window.StateFullScreen:
			target = m.monitors[idx].Local
		}
	}
	w.SetState(state, target)
	if state == window.StateMinimized && m.focus == w {
		m.SetFocusWindow(nil)
	}
}

// ScreenRegion returns the union of all monitor geometries
func (m *Manager) ScreenRegion() geom.Region {
	var r geom.Region
	for _, mon := range m.monitors {
		r.Add(mon.Local)
	}
	return r
}
