package cursor

import (
	"image"
	"testing"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOf(n byte) Key {
	var k Key
	k[0] = n
	return k
}

func TestCacheEvictsOldestUnreused(t *testing.T) {
	const capacity = 4
	c := NewCache(capacity)

	for i := 0; i < capacity; i++ {
		res := c.Touch(keyOf(byte(i)))
		assert.False(t, res.Hit)
		assert.False(t, res.Evicted)
		assert.Equal(t, i, res.Slot)
	}

	// Reuse the oldest; key 1 becomes the LRU.
	assert.True(t, c.Touch(keyOf(0)).Hit)

	evictions := 0
	res := c.Touch(keyOf(99))
	if res.Evicted {
		evictions++
	}
	assert.Equal(t, 1, evictions)
	assert.Equal(t, keyOf(1), res.EvictedKey)
	assert.Equal(t, 1, res.Slot)
	assert.Equal(t, capacity, c.Len())
}

func TestCacheNeverExceedsCapacity(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 50; i++ {
		c.Touch(keyOf(byte(i)))
		require.LessOrEqual(t, c.Len(), c.Capacity())
	}
}

func TestCacheZeroCapacity(t *testing.T) {
	c := NewCache(0)
	res := c.Touch(keyOf(1))
	assert.Equal(t, -1, res.Slot)
	assert.False(t, res.Hit)
}

func TestCacheCapacityIsClamped(t *testing.T) {
	assert.Equal(t, MaxCacheSize, NewCache(1<<50).Capacity())
	assert.Equal(t, 0, NewCache(-3).Capacity())
}

func TestCacheReset(t *testing.T) {
	c := NewCache(2)
	c.Touch(keyOf(1))
	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Touch(keyOf(1)).Hit)
}

func TestCacheForgetFreesSlot(t *testing.T) {
	c := NewCache(2)
	c.Touch(keyOf(1))
	c.Touch(keyOf(2))
	c.Forget(keyOf(1))
	c.Forget(keyOf(42))

	assert.Equal(t, 1, c.Len())
	res := c.Touch(keyOf(3))
	assert.False(t, res.Evicted)
	assert.Equal(t, 0, res.Slot)
	assert.False(t, c.Touch(keyOf(1)).Hit)
}

func TestShapeKeyDependsOnContent(t *testing.T) {
	a := framebuffer.MustNew(4, 4)
	b := framebuffer.MustNew(4, 4)
	b.Set(1, 1, 0xFFFFFFFF)

	ka := NewShape(KindDefault, image.Pt(0, 0), a).Key()
	kb := NewShape(KindDefault, image.Pt(0, 0), b).Key()
	kc := NewShape(KindMove, image.Pt(0, 0), a.Clone()).Key()
	kd := NewShape(KindDefault, image.Pt(1, 0), a).Key()

	assert.NotEqual(t, ka, kb)
	assert.Equal(t, ka, kc, "kind does not contribute to identity")
	assert.NotEqual(t, ka, kd)
}

func TestBuiltinShapes(t *testing.T) {
	b := NewBuiltin()
	assert.True(t, b.Shape(KindHidden).Hidden())
	assert.False(t, b.Shape(KindResizeNS).Hidden())
	assert.NotEqual(t, b.Shape(KindResizeNS).Key(), b.Shape(KindResizeEW).Key())
}
