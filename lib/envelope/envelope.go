package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrUnsupportedType is returned when an external value cannot be mapped to any variant
	ErrUnsupportedType = errors.New("unsupported value type")
	// ErrCodec is returned when an envelope or its wire form is structurally invalid
	ErrCodec = errors.New("malformed value envelope")
)

// --------------------------------------------------------------------------
// Variant Tags
// --------------------------------------------------------------------------

// Kind is the explicit variant tag of an Envelope. The numeric values are part
// of the wire format and must never be reordered.
type Kind uint8

const (
	KindUnknown Kind = iota // Zero value, never valid on the wire
	KindString              // UTF-8 text (also carries composites as canonical JSON)
	KindInt32               // 32-bit signed integer
	KindBool                // Boolean
	KindFloat32             // 32-bit IEEE-754 float
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindBool:
		return "bool"
	case KindFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Envelope
// --------------------------------------------------------------------------

// Envelope is a tagged union holding exactly one value. Only the field matching
// kind is meaningful. Envelopes are immutable values and safe to copy.
type Envelope struct {
	kind Kind
	text string
	i32  int32
	b    bool
	f32  float32
}

// String creates a string envelope
func String(s string) Envelope { return Envelope{kind: KindString, text: s} }

// Int32 creates an int32 envelope
func Int32(i int32) Envelope { return Envelope{kind: KindInt32, i32: i} }

// Bool creates a bool envelope
func Bool(b bool) Envelope { return Envelope{kind: KindBool, b: b} }

// Float32 creates a float32 envelope
func Float32(f float32) Envelope { return Envelope{kind: KindFloat32, f32: f} }

// Kind returns the active variant.
func (e Envelope) Kind() Kind { return e.kind }

// IsValid reports whether a variant is set and the envelope has a wire form.
// The text of the String variant must be valid UTF-8.
func (e Envelope) IsValid() bool {
	if e.kind == KindString {
		return utf8.ValidString(e.text)
	}
	return e.kind >= KindInt32 && e.kind <= KindFloat32
}

// Text returns the string payload and whether the String variant is active.
func (e Envelope) Text() (string, bool) { return e.text, e.kind == KindString }

// Int returns the int32 payload and whether the Int32 variant is active.
func (e Envelope) Int() (int32, bool) { return e.i32, e.kind == KindInt32 }

// Boolean returns the bool payload and whether the Bool variant is active.
func (e Envelope) Boolean() (bool, bool) { return e.b, e.kind == KindBool }

// Float returns the float32 payload and whether the Float32 variant is active.
func (e Envelope) Float() (float32, bool) { return e.f32, e.kind == KindFloat32 }

// Equal reports whether two envelopes carry the same variant and payload.
// Float payloads are compared bit-wise so that NaN equals itself.
func (e Envelope) Equal(o Envelope) bool {
	if e.kind != o.kind {
		return false
	}
	switch e.kind {
	case KindString:
		return e.text == o.text
	case KindInt32:
		return e.i32 == o.i32
	case KindBool:
		return e.b == o.b
	case KindFloat32:
		return math.Float32bits(e.f32) == math.Float32bits(o.f32)
	default:
		return true
	}
}

// GoString implements fmt.GoStringer to make test failures readable
func (e Envelope) GoString() string {
	switch e.kind {
	case KindString:
		return fmt.Sprintf("envelope.String(%q)", e.text)
	case KindInt32:
		return fmt.Sprintf("envelope.Int32(%d)", e.i32)
	case KindBool:
		return fmt.Sprintf("envelope.Bool(%t)", e.b)
	case KindFloat32:
		return fmt.Sprintf("envelope.Float32(%g)", e.f32)
	default:
		return "envelope.Envelope{}"
	}
}

// --------------------------------------------------------------------------
// Wire Format
// --------------------------------------------------------------------------

// MarshalBinary encodes the envelope as:
// - 1 byte: kind tag
// - N bytes: payload (UTF-8 text | 4 byte int32 BE | 1 byte bool | 4 byte float32 bits BE)
func (e Envelope) MarshalBinary() ([]byte, error) {
	switch e.kind {
	case KindString:
		if !utf8.ValidString(e.text) {
			return nil, fmt.Errorf("%w: string payload is not valid UTF-8", ErrCodec)
		}
		buf := make([]byte, 1+len(e.text))
		buf[0] = byte(KindString)
		copy(buf[1:], e.text)
		return buf, nil
	case KindInt32:
		buf := make([]byte, 5)
		buf[0] = byte(KindInt32)
		binary.BigEndian.PutUint32(buf[1:], uint32(e.i32))
		return buf, nil
	case KindBool:
		buf := []byte{byte(KindBool), 0}
		if e.b {
			buf[1] = 1
		}
		return buf, nil
	case KindFloat32:
		buf := make([]byte, 5)
		buf[0] = byte(KindFloat32)
		binary.BigEndian.PutUint32(buf[1:], math.Float32bits(e.f32))
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: no variant set", ErrCodec)
	}
}

// UnmarshalBinary decodes the wire form produced by MarshalBinary.
// The envelope is left untouched if an error is returned.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty data", ErrCodec)
	}

	kind, payload := Kind(data[0]), data[1:]
	switch kind {
	case KindString:
		if !utf8.Valid(payload) {
			return fmt.Errorf("%w: string payload is not valid UTF-8", ErrCodec)
		}
		*e = String(string(payload))
	case KindInt32:
		if len(payload) != 4 {
			return fmt.Errorf("%w: int32 payload has %d bytes", ErrCodec, len(payload))
		}
		*e = Int32(int32(binary.BigEndian.Uint32(payload)))
	case KindBool:
		if len(payload) != 1 || payload[0] > 1 {
			return fmt.Errorf("%w: invalid bool payload", ErrCodec)
		}
		*e = Bool(payload[0] == 1)
	case KindFloat32:
		if len(payload) != 4 {
			return fmt.Errorf("%w: float32 payload has %d bytes", ErrCodec, len(payload))
		}
		*e = Float32(math.Float32frombits(binary.BigEndian.Uint32(payload)))
	default:
		return fmt.Errorf("%w: unknown kind tag %d", ErrCodec, data[0])
	}
	return nil
}

// Unmarshal is a convenience wrapper around UnmarshalBinary
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := e.UnmarshalBinary(data)
	return e, err
}
