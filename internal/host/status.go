package host

import (
	"context"

	"github.com/GriffinCanCode/rdesk/internal/peer"
)

// PeerStatus describes one connected viewer
type PeerStatus struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Mode        string `json:"mode"`
	Scheme      string `json:"scheme"`
	ColorDepth  int    `json:"color_depth"`
	Suspended   string `json:"suspended"`
	Outstanding int    `json:"outstanding_frames"`
}

// MonitorStatus describes one monitor of the current layout
type MonitorStatus struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Primary bool   `json:"primary"`
	Local   string `json:"local"`
	Remote  string `json:"remote"`
}

// Status is a point-in-time view of the desktop
type Status struct {
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Theme    string          `json:"theme"`
	Windows  int             `json:"windows"`
	Frame    uint64          `json:"frame"`
	Timing   FrameTiming     `json:"timing"`
	Monitors []MonitorStatus `json:"monitors"`
	Peers    []PeerStatus    `json:"peers"`
}

// Status collects the desktop state on the loop
func (h *Host) Status(ctx context.Context) (Status, error) {
	var st Status
	err := h.Call(ctx, func() {
		st = h.status()
	})
	return st, err
}

func (h *Host) status() Status {
	bounds := h.desktop.Desktop().Bounds()
	st := Status{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Theme:   h.desktop.Theme().Name,
		Windows: len(h.desktop.Windows()),
		Frame:   h.lastSeq,
		Timing:  h.frames.summary(h.cfg.FrameInterval),
		Peers:   make([]PeerStatus, 0, h.registry.Len()),
	}
	for _, m := range h.desktop.Monitors() {
		st.Monitors = append(st.Monitors, MonitorStatus{
			Index:   m.Index,
			Name:    m.Name,
			Primary: m.Primary,
			Local:   m.Local.String(),
			Remote:  m.Remote.String(),
		})
	}
	for _, s := range h.registry.Sessions() {
		st.Peers = append(st.Peers, peerStatus(s))
	}
	return st
}

func peerStatus(s *peer.Session) PeerStatus {
	return PeerStatus{
		ID:          s.ID().String(),
		State:       s.State().String(),
		Mode:        s.Mode().String(),
		Scheme:      s.Scheme().String(),
		ColorDepth:  s.ColorDepth(),
		Suspended:   s.Suspended().String(),
		Outstanding: s.Outstanding(),
	}
}
