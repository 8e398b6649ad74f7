package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateLetters(t *testing.T) {
	tr := NewUSTranslator()

	ev := tr.Translate(0x1E, 0)
	assert.Equal(t, SymChar, ev.Sym)
	assert.Equal(t, "a", ev.Text)
	assert.True(t, ev.Pressed)

	tr.Translate(0x2A, 0) // shift down
	ev = tr.Translate(0x1E, 0)
	assert.Equal(t, "A", ev.Text)
	assert.Equal(t, ModShift, ev.Modifiers)

	tr.Translate(0x2A, KeyFlagRelease)
	ev = tr.Translate(0x02, 0)
	assert.Equal(t, "1", ev.Text)
	assert.Zero(t, ev.Modifiers)
}

func TestTranslateCapsLockOnlyAffectsLetters(t *testing.T) {
	tr := NewUSTranslator()
	tr.Translate(0x3A, 0)
	tr.Translate(0x3A, KeyFlagRelease)

	assert.Equal(t, "Q", tr.Translate(0x10, 0).Text)
	assert.Equal(t, "1", tr.Translate(0x02, 0).Text)
}

func TestTranslateExtended(t *testing.T) {
	tr := NewUSTranslator()
	assert.Equal(t, SymLeft, tr.Translate(0x4B, KeyFlagExtended).Sym)
	assert.Equal(t, SymUnknown, tr.Translate(0x7F, 0).Sym)

	ev := tr.Translate(0x53, KeyFlagExtended|KeyFlagRelease)
	assert.Equal(t, SymDelete, ev.Sym)
	assert.False(t, ev.Pressed)
}
