package display

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
)

func TestNormalizeNegativeOrigin(t *testing.T) {
	entries := []Entry{
		{Rect: image.Rect(-100, 0, 700, 600), Primary: true},
		{Rect: image.Rect(700, 0, 1500, 600)},
	}
	got := Normalize(entries)
	assert.Equal(t, []image.Rectangle{
		image.Rect(0, 0, 800, 600),
		image.Rect(800, 0, 1600, 600),
	}, got)
	assert.False(t, got[0].Overlaps(got[1]))
}

func TestReconcileAddsAndKeepsRemoteSize(t *testing.T) {
	plan, err := Reconcile(Single(800, 600), []Entry{
		{Rect: image.Rect(-100, 0, 700, 600), Primary: true},
		{Rect: image.Rect(700, 0, 1500, 600)},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, plan.Changed)
	assert.Equal(t, []int{1}, plan.Added)
	assert.Empty(t, plan.Removed)
	assert.True(t, plan.BoundsChanged)
	assert.Equal(t, image.Rect(0, 0, 1600, 600), plan.Bounds)

	for _, m := range plan.Monitors {
		assert.Equal(t, m.Local.Size(), m.Remote.Size())
	}
	assert.True(t, plan.Monitors[0].Primary)
	assert.False(t, plan.Monitors[1].Primary)
}

func TestReconcileIsIdempotent(t *testing.T) {
	layout := []Entry{
		{Rect: image.Rect(0, 0, 1024, 768)},
		{Rect: image.Rect(1024, 0, 2048, 768), Primary: true},
	}
	first, err := Reconcile(Single(800, 600), layout)
	require.NoError(t, err)
	require.False(t, first.Empty())

	second, err := Reconcile(first.Monitors, layout)
	require.NoError(t, err)
	assert.True(t, second.Empty())
}

func TestReconcileRemovesTrailingMonitors(t *testing.T) {
	two, err := Reconcile(nil, []Entry{
		{Rect: image.Rect(0, 0, 800, 600)},
		{Rect: image.Rect(800, 0, 1600, 600)},
	})
	require.NoError(t, err)

	one, err := Reconcile(two.Monitors, []Entry{{Rect: image.Rect(0, 0, 800, 600)}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, one.Removed)
	assert.Empty(t, one.Changed)
	assert.True(t, one.BoundsChanged)
	assert.True(t, one.Monitors[0].Primary, "first monitor becomes primary when none is flagged")
}

func TestReconcileRejectsInvalidLayouts(t *testing.T) {
	_, err := Reconcile(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyLayout)

	_, err = Reconcile(nil, []Entry{{Rect: image.Rect(0, 0, 0, 600)}})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	many := make([]Entry, MaxMonitors+1)
	for i := range many {
		many[i] = Entry{Rect: image.Rect(i*10, 0, i*10+10, 10)}
	}
	_, err = Reconcile(nil, many)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestReconcileRejectsOversizedLayouts(t *testing.T) {
	far := []Entry{
		{Rect: image.Rect(0, 0, 10, 10), Primary: true},
		{Rect: image.Rect(1<<30, 1<<30, 1<<30+10, 1<<30+10)},
	}
	_, err := Reconcile(nil, far)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	wide := []Entry{
		{Rect: image.Rect(0, 0, 10, 10), Primary: true},
		{Rect: image.Rect(framebuffer.MaxDimension, 0, framebuffer.MaxDimension+10, 10)},
	}
	_, err = Reconcile(nil, wide)
	assert.ErrorIs(t, err, ErrInvalidLayout)
	assert.ErrorIs(t, err, framebuffer.ErrTooLarge)

	square := []Entry{{Rect: image.Rect(0, 0, framebuffer.MaxDimension, framebuffer.MaxDimension)}}
	_, err = Reconcile(nil, square)
	assert.ErrorIs(t, err, framebuffer.ErrTooLarge)
}

func TestNearest(t *testing.T) {
	mons := Single(800, 600)
	assert.Equal(t, 0, Nearest(mons, image.Rect(2000, 2000, 2100, 2100)))
	assert.Equal(t, 0, MonitorAt(mons, image.Pt(10, 10)))
	assert.Equal(t, -1, MonitorAt(mons, image.Pt(900, 10)))
}
