package codec

import (
	"errors"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
)

func gradientTile() *framebuffer.FrameBuffer {
	fb := framebuffer.MustNew(64, 64)
	for y := 0; y < 64; y++ {
		fb.Fill(image.Rect(0, y, 64, y+1), 0xFF000000|uint32(y)<<8)
	}
	return fb
}

func noiseTile() *framebuffer.FrameBuffer {
	fb := framebuffer.MustNew(64, 64)
	rng := rand.New(rand.NewSource(1))
	rng.Read(fb.Pix)
	return fb
}

func TestBackendsRoundTrip(t *testing.T) {
	tile := gradientTile()
	want := tile.Packed(tile.Bounds())

	for _, s := range []Scheme{SchemeRaw, SchemeBitmap, SchemePlanar, SchemeZstd} {
		t.Run(s.String(), func(t *testing.T) {
			b, err := NewBackend(s)
			require.NoError(t, err)
			assert.Equal(t, s, b.Scheme())

			data, err := b.Encode(tile)
			require.NoError(t, err)
			if s != SchemeRaw {
				assert.Less(t, len(data), len(want))
			}

			got, err := Decode(s, data, len(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCompressingBackendsRejectNoise(t *testing.T) {
	tile := noiseTile()
	for _, s := range []Scheme{SchemeBitmap, SchemePlanar, SchemeZstd} {
		b, err := NewBackend(s)
		require.NoError(t, err)
		_, err = b.Encode(tile)
		assert.ErrorIs(t, err, ErrIncompressible, s.String())
	}
}

func TestParseScheme(t *testing.T) {
	for _, s := range []Scheme{SchemeRaw, SchemeBitmap, SchemePlanar, SchemeZstd} {
		got, err := ParseScheme(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseScheme("jpeg")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Scheme() Scheme {
	return m.Called().Get(0).(Scheme)
}

func (m *mockBackend) Encode(tile *framebuffer.FrameBuffer) ([]byte, error) {
	args := m.Called(tile)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func TestEncoderFallsBackToRawWhenIncompressible(t *testing.T) {
	b := &mockBackend{}
	b.On("Scheme").Return(SchemeBitmap)
	b.On("Encode", mock.Anything).Return(nil, ErrIncompressible)

	e := NewEncoder(b, GuardSettings{})
	tile := gradientTile()
	scheme, data, err := e.Encode(tile)

	require.NoError(t, err)
	assert.Equal(t, SchemeRaw, scheme)
	assert.Equal(t, tile.Packed(tile.Bounds()), data)
	b.AssertExpectations(t)
}

func TestEncoderReportsFailuresAndTrips(t *testing.T) {
	b := &mockBackend{}
	b.On("Scheme").Return(SchemeZstd)
	b.On("Encode", mock.Anything).Return(nil, errors.New("boom"))

	var transitions []GuardState
	e := NewEncoder(b, GuardSettings{
		Threshold: 2,
		Cooldown:  time.Minute,
		OnStateChange: func(_ Scheme, _, to GuardState) {
			transitions = append(transitions, to)
		},
	})
	tile := gradientTile()

	for i := 0; i < 2; i++ {
		_, _, err := e.Encode(tile)
		assert.ErrorIs(t, err, ErrEncodeFailure)
	}
	assert.Equal(t, GuardOpen, e.Guard().State())
	assert.Equal(t, []GuardState{GuardOpen}, transitions)

	// Open guard: the backend is bypassed.
	scheme, data, err := e.Encode(tile)
	require.NoError(t, err)
	assert.Equal(t, SchemeRaw, scheme)
	assert.Len(t, data, framebuffer.ByteArea(tile.Bounds()))
	b.AssertNumberOfCalls(t, "Encode", 2)
}

func TestGuardHalfOpenAfterCooldown(t *testing.T) {
	now := time.Unix(0, 0)
	g := NewGuard(SchemeBitmap, GuardSettings{Threshold: 1, Cooldown: time.Second})
	g.now = func() time.Time { return now }

	g.Failure()
	assert.ErrorIs(t, g.Allow(), ErrBackendOpen)

	now = now.Add(time.Second)
	assert.Equal(t, GuardHalfOpen, g.State())
	require.NoError(t, g.Allow())

	g.Failure()
	assert.Equal(t, GuardOpen, g.State())

	now = now.Add(time.Second)
	g.Success()
	assert.Equal(t, GuardClosed, g.State())
}
