package codec

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/rdesk/internal/framebuffer"
)

// Encoder pairs a preferred backend with the raw fallback. It is owned by
// one peer session.
type Encoder struct {
	preferred Backend
	raw       Backend
	guard     *Guard
}

// NewEncoder creates an encoder preferring backend
func NewEncoder(backend Backend, settings GuardSettings) *Encoder {
	if backend == nil {
		backend = rawBackend{}
	}
	return &Encoder{
		preferred: backend,
		raw:       rawBackend{},
		guard:     NewGuard(backend.Scheme(), settings),
	}
}

// Scheme returns the preferred scheme
func (e *Encoder) Scheme() Scheme {
	return e.preferred.Scheme()
}

// Guard returns the failure guard of the preferred backend
func (e *Encoder) Guard() *Guard {
	return e.guard
}

// Encode encodes a tile and reports which scheme was used. Incompressible
// tiles and tiles arriving while the guard is open go out raw. Any other
// backend error is returned wrapped in ErrEncodeFailure.
func (e *Encoder) Encode(tile *framebuffer.FrameBuffer) (Scheme, []byte, error) {
	if e.preferred.Scheme() == SchemeRaw || e.guard.Allow() != nil {
		data, _ := e.raw.Encode(tile)
		return SchemeRaw, data, nil
	}

	data, err := e.preferred.Encode(tile)
	switch {
	case err == nil:
		e.guard.Success()
		return e.preferred.Scheme(), data, nil
	case errors.Is(err, ErrIncompressible):
		e.guard.Success()
		data, _ = e.raw.Encode(tile)
		return SchemeRaw, data, nil
	default:
		e.guard.Failure()
		return e.preferred.Scheme(), nil, fmt.Errorf("%w: %s: %w", ErrEncodeFailure, e.preferred.Scheme(), err)
	}
}
