package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/bytedance/sonic"
	"github.com/fxamacker/cbor/v2"
)

// Subprotocol names negotiated on the WebSocket upgrade
const (
	SubprotocolCBOR = "rdesk.cbor"
	SubprotocolJSON = "rdesk.json"
)

var (
	// ErrUnknownType is returned when decoding an unregistered message type
	ErrUnknownType = errors.New("unknown message type")
	// ErrMalformed is returned for frames that are not a valid envelope
	ErrMalformed = errors.New("malformed message")
)

// Codec converts messages to and from wire frames
type Codec interface {
	// Subprotocol returns the WebSocket subprotocol name
	Subprotocol() string
	// Binary reports whether frames are binary rather than text
	Binary() bool
	Encode(ch Channel, m Message) ([]byte, error)
	Decode(data []byte) (Channel, Message, error)
}

// ForSubprotocol returns the codec for a negotiated subprotocol.
// An empty name selects CBOR.
func ForSubprotocol(name string) (Codec, bool) {
	switch name {
	case SubprotocolCBOR, "":
		return CBOR, true
	case SubprotocolJSON:
		return JSON, true
	default:
		return nil, false
	}
}

// Subprotocols lists the supported subprotocols, preferred first
func Subprotocols() []string {
	return []string{SubprotocolCBOR, SubprotocolJSON}
}

// New allocates an empty message of the given type
func New(t Type) (Message, error) {
	f, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return f(), nil
}

// deref turns the pointer produced by the registry into a value variant
func deref(m Message) Message {
	return reflect.ValueOf(m).Elem().Interface().(Message)
}

// CBOR is the binary codec, using core deterministic encoding
var CBOR Codec = cborCodec{}

// JSON is the text codec
var JSON Codec = jsonCodec{}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborEnvelope struct {
	Type    Type            `cbor:"t"`
	Channel Channel         `cbor:"c,omitempty"`
	Body    cbor.RawMessage `cbor:"b"`
}

type cborCodec struct{}

func (cborCodec) Subprotocol() string { return SubprotocolCBOR }
func (cborCodec) Binary() bool        { return true }

func (cborCodec) Encode(ch Channel, m Message) ([]byte, error) {
	body, err := cborEnc.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return cborEnc.Marshal(cborEnvelope{Type: m.Type(), Channel: ch, Body: body})
}

func (cborCodec) Decode(data []byte) (Channel, Message, error) {
	var env cborEnvelope
	if err := cborDec.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	m, err := New(env.Type)
	if err != nil {
		return env.Channel, nil, err
	}
	if err := cborDec.Unmarshal(env.Body, m); err != nil {
		return env.Channel, nil, fmt.Errorf("%w: %s: %w", ErrMalformed, env.Type, err)
	}
	return env.Channel, deref(m), nil
}

type jsonEnvelope struct {
	Type    Type            `json:"type"`
	Channel Channel         `json:"channel,omitempty"`
	Body    json.RawMessage `json:"body"`
}

type jsonCodec struct{}

func (jsonCodec) Subprotocol() string { return SubprotocolJSON }
func (jsonCodec) Binary() bool        { return false }

func (jsonCodec) Encode(ch Channel, m Message) ([]byte, error) {
	body, err := sonic.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}
	return sonic.Marshal(jsonEnvelope{Type: m.Type(), Channel: ch, Body: body})
}

func (jsonCodec) Decode(data []byte) (Channel, Message, error) {
	var env jsonEnvelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	m, err := New(env.Type)
	if err != nil {
		return env.Channel, nil, err
	}
	if len(env.Body) > 0 {
		if err := sonic.Unmarshal(env.Body, m); err != nil {
			return env.Channel, nil, fmt.Errorf("%w: %s: %w", ErrMalformed, env.Type, err)
		}
	}
	return env.Channel, deref(m), nil
}
