package peer

import (
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/clipboard"
	"github.com/GriffinCanCode/rdesk/internal/protocol"
)

func (s *Session) clipboardReady() bool {
	return s.hub != nil && s.open[protocol.ChannelClipboard]
}

// ClipboardChanged announces new desktop clipboard content to the viewer.
// Content the viewer itself supplied is not echoed back.
func (s *Session) ClipboardChanged(data clipboard.Data, origin string) {
	if !s.clipboardReady() || origin == s.id.String() {
		return
	}
	s.clip = clipboard.State{}
	s.announceClipboard(data)
}

func (s *Session) announceClipboard(data clipboard.Data) {
	msg := protocol.ClipboardFormats{Formats: clipboard.Wire(data.Formats())}
	s.sendClipboard(msg)
}

// sendClipboard drops clipboard traffic under backpressure; the viewer
// asks again on its next paste
func (s *Session) sendClipboard(msg protocol.Message) {
	if err := s.send(protocol.ChannelClipboard, msg); errors.Is(err, ErrBackpressure) {
		s.log.Debug("Clipboard message dropped", zap.String("type", string(msg.Type())))
	}
}

// clipboardFormats handles a viewer taking clipboard ownership: the best
// offered format is requested straight away
func (s *Session) clipboardFormats(msg protocol.ClipboardFormats) {
	if !s.clipboardReady() {
		return
	}
	f, ok := s.clip.Announce(clipboard.FromWire(msg.Formats))
	if !ok {
		s.log.Debug("No usable clipboard format offered", zap.Int("formats", len(msg.Formats)))
		return
	}
	s.sendClipboard(protocol.ClipboardRequest{RequestID: s.clip.Request(f), Format: uint32(f)})
}

// clipboardRequest answers a viewer paste from the desktop clipboard
func (s *Session) clipboardRequest(msg protocol.ClipboardRequest) {
	if !s.clipboardReady() {
		return
	}
	f := clipboard.Format(msg.Format)
	reply := protocol.ClipboardData{RequestID: msg.RequestID, Format: msg.Format}
	payload, err := s.converter.ToViewer(s.hub.Data(), f)
	if err != nil {
		s.log.Debug("Clipboard request unanswerable", zap.Stringer("format", f), zap.Error(err))
	} else {
		reply.OK, reply.Data = true, payload
	}
	s.sendClipboard(reply)
}

// clipboardData takes the viewer's answer to our request into the hub
func (s *Session) clipboardData(msg protocol.ClipboardData) {
	if !s.clipboardReady() {
		return
	}
	f := clipboard.Format(msg.Format)
	if !s.clip.Complete(msg.RequestID, f) {
		s.log.Debug("Unsolicited clipboard data", zap.String("request_id", msg.RequestID))
		return
	}
	if !msg.OK {
		s.log.Info("Viewer failed clipboard request", zap.Stringer("format", f))
		return
	}
	data, err := s.converter.FromViewer(f, msg.Data)
	if err != nil {
		s.log.Warn("Clipboard payload rejected", zap.Stringer("format", f), zap.Error(err))
		return
	}
	s.hub.SetRemote(data, s.id.String())
}
