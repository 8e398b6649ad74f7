// Package input defines the pointer and keyboard events routed by the
// window manager, and the key translation collaborator that turns raw
// viewer scan codes into abstract key symbols.
package input

import "image"

// Button is a bitmask of pointer buttons
type Button uint8

const (
	ButtonLeft Button = 1 << iota
	ButtonRight
	ButtonMiddle
	ButtonBack
	ButtonForward
)

// PointerKind identifies the pointer event type
type PointerKind uint8

const (
	PointerMove PointerKind = iota
	PointerPress
	PointerRelease
	PointerWheel
	PointerEnter
	PointerLeave
)

// String returns the event kind name
func (k PointerKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerPress:
		return "press"
	case PointerRelease:
		return "release"
	case PointerWheel:
		return "wheel"
	case PointerEnter:
		return "enter"
	case PointerLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// PointerEvent is a pointer event in desktop pixel coordinates.
// Buttons holds the button state after the event; Button is the
// button that changed for press/release.
type PointerEvent struct {
	Kind    PointerKind
	Pos     image.Point
	Button  Button
	Buttons Button
	WheelX  int
	WheelY  int
}

// Local returns a copy of the event with Pos relative to origin
func (e PointerEvent) Local(origin image.Point) PointerEvent {
	e.Pos = e.Pos.Sub(origin)
	return e
}

// Modifier is a bitmask of keyboard modifiers
type Modifier uint16

const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
	ModMeta
	ModCapsLock
	ModNumLock
)

// KeyFlags carries the raw flags sent with a scan code
type KeyFlags uint16

const (
	KeyFlagRelease  KeyFlags = 1 << iota
	KeyFlagExtended
)

// KeyEvent is a translated key press or release
type KeyEvent struct {
	Sym       Sym
	Text      string
	Modifiers Modifier
	Pressed   bool
	ScanCode  uint16
}

// Event is a single input event delivered to a window
type Event struct {
	Pointer *PointerEvent
	Key     *KeyEvent
}
