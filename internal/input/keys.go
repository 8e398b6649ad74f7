package input

import "strings"

// Sym is an abstract key symbol
type Sym uint16

const (
	SymUnknown Sym = iota
	SymEscape
	SymBackspace
	SymTab
	SymEnter
	SymSpace
	SymShift
	SymControl
	SymAlt
	SymMeta
	SymCapsLock
	SymLeft
	SymRight
	SymUp
	SymDown
	SymHome
	SymEnd
	SymPageUp
	SymPageDown
	SymInsert
	SymDelete
	SymF1
	SymF2
	SymF3
	SymF4
	SymF5
	SymF6
	SymF7
	SymF8
	SymF9
	SymF10
	SymF11
	SymF12
	// SymChar marks printable keys; the character is in KeyEvent.Text.
	SymChar
)

// Translator converts a raw scan code into a key event
type Translator interface {
	Translate(scanCode uint16, flags KeyFlags) KeyEvent
}

type keyDef struct {
	sym     Sym
	lower   string
	shifted string
}

// set-1 scan codes, US layout
var baseKeys = map[uint16]keyDef{
	0x01: {sym: SymEscape},
	0x0E: {sym: SymBackspace},
	0x0F: {sym: SymTab},
	0x1C: {sym: SymEnter},
	0x39: {sym: SymChar, lower: " ", shifted: " "},
	0x2A: {sym: SymShift},
	0x36: {sym: SymShift},
	0x1D: {sym: SymControl},
	0x38: {sym: SymAlt},
	0x3A: {sym: SymCapsLock},
	0x3B: {sym: SymF1}, 0x3C: {sym: SymF2}, 0x3D: {sym: SymF3}, 0x3E: {sym: SymF4},
	0x3F: {sym: SymF5}, 0x40: {sym: SymF6}, 0x41: {sym: SymF7}, 0x42: {sym: SymF8},
	0x43: {sym: SymF9}, 0x44: {sym: SymF10}, 0x57: {sym: SymF11}, 0x58: {sym: SymF12},
}

var extendedKeys = map[uint16]keyDef{
	0x1D: {sym: SymControl},
	0x38: {sym: SymAlt},
	0x5B: {sym: SymMeta},
	0x5C: {sym: SymMeta},
	0x47: {sym: SymHome},
	0x48: {sym: SymUp},
	0x49: {sym: SymPageUp},
	0x4B: {sym: SymLeft},
	0x4D: {sym: SymRight},
	0x4F: {sym: SymEnd},
	0x50: {sym: SymDown},
	0x51: {sym: SymPageDown},
	0x52: {sym: SymInsert},
	0x53: {sym: SymDelete},
	0x1C: {sym: SymEnter},
}

func init() {
	rows := []struct {
		start   uint16
		lower   string
		shifted string
	}{
		{0x02, "1234567890-=", "!@#$%^&*()_+"},
		{0x10, "qwertyuiop[]", "QWERTYUIOP{}"},
		{0x1E, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
		{0x2B, "\\zxcvbnm,./", "|ZXCVBNM<>?"},
	}
	for _, row := range rows {
		for i, r := range row.lower {
			baseKeys[row.start+uint16(i)] = keyDef{
				sym:     SymChar,
				lower:   string(r),
				shifted: string(row.shifted[i]),
			}
		}
	}
}

// USTranslator is a stateful translator for the US layout.
// It tracks modifier state across events.
type USTranslator struct {
	mods Modifier
}

// NewUSTranslator creates a translator with no modifiers held
func NewUSTranslator() *USTranslator {
	return &USTranslator{}
}

// Modifiers returns the modifiers currently held
func (t *USTranslator) Modifiers() Modifier {
	return t.mods
}

// Translate implements Translator
func (t *USTranslator) Translate(scanCode uint16, flags KeyFlags) KeyEvent {
	table := baseKeys
	if flags&KeyFlagExtended != 0 {
		table = extendedKeys
	}
	def, ok := table[scanCode]
	pressed := flags&KeyFlagRelease == 0

	ev := KeyEvent{Sym: SymUnknown, Pressed: pressed, ScanCode: scanCode}
	if !ok {
		ev.Modifiers = t.mods
		return ev
	}
	ev.Sym = def.sym

	switch def.sym {
	case SymShift:
		t.toggle(ModShift, pressed)
	case SymControl:
		t.toggle(ModControl, pressed)
	case SymAlt:
		t.toggle(ModAlt, pressed)
	case SymMeta:
		t.toggle(ModMeta, pressed)
	case SymCapsLock:
		if pressed {
			t.mods ^= ModCapsLock
		}
	case SymChar:
		ev.Text = t.text(def)
	}
	ev.Modifiers = t.mods
	return ev
}

func (t *USTranslator) toggle(m Modifier, on bool) {
	if on {
		t.mods |= m
	} else {
		t.mods &^= m
	}
}

func (t *USTranslator) text(def keyDef) string {
	shift := t.mods&ModShift != 0
	if t.mods&ModCapsLock != 0 && strings.ToUpper(def.lower) != def.lower {
		shift = !shift
	}
	if shift {
		return def.shifted
	}
	return def.lower
}
