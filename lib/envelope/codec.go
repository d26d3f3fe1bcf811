package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is returned by ParseJSON when the input is not a single JSON value
var ErrSyntax = errors.New("invalid JSON literal")

// --------------------------------------------------------------------------
// Encoding (external value -> envelope)
// --------------------------------------------------------------------------

// Encode maps an externally typed value to the envelope variant that matches
// its most specific scalar type. Sequences and mappings are stored as their
// canonical JSON text in the String variant.
//
// Supported inputs: string, bool, all Go integer types (if the value fits into
// an int32), float32, float64, json.Number, json.RawMessage, []any,
// map[string]any and Envelope itself. Everything else fails with ErrUnsupportedType.
func Encode(v any) (Envelope, error) {
	switch x := v.(type) {
	case Envelope:
		if !x.IsValid() {
			return Envelope{}, fmt.Errorf("%w: empty envelope or invalid UTF-8 text", ErrUnsupportedType)
		}
		return x, nil
	case string:
		if !utf8.ValidString(x) {
			return Envelope{}, fmt.Errorf("%w: string is not valid UTF-8", ErrUnsupportedType)
		}
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return fromInt64(int64(x))
	case int8:
		return Int32(int32(x)), nil
	case int16:
		return Int32(int32(x)), nil
	case int32:
		return Int32(x), nil
	case int64:
		return fromInt64(x)
	case uint:
		return fromUint64(uint64(x))
	case uint8:
		return Int32(int32(x)), nil
	case uint16:
		return Int32(int32(x)), nil
	case uint32:
		return fromUint64(uint64(x))
	case uint64:
		return fromUint64(x)
	case float32:
		return fromFloat64(float64(x))
	case float64:
		return fromFloat64(x)
	case json.Number:
		return fromNumber(x)
	case json.RawMessage:
		return ParseJSON(x)
	case []any:
		if x == nil {
			x = []any{}
		}
		return Composite(x)
	case map[string]any:
		if x == nil {
			x = map[string]any{}
		}
		return Composite(x)
	case nil:
		return Envelope{}, fmt.Errorf("%w: null", ErrUnsupportedType)
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// Composite serializes a sequence or mapping to its canonical JSON text and
// wraps it in the String variant. Map keys are sorted by encoding/json.
func Composite(v any) (Envelope, error) {
	text, err := marshalJSON(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	if !looksComposite(text) {
		return Envelope{}, fmt.Errorf("%w: %T is not a sequence or mapping", ErrUnsupportedType, v)
	}
	return String(string(text)), nil
}

func fromInt64(i int64) (Envelope, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return Envelope{}, fmt.Errorf("%w: integer %d overflows int32", ErrUnsupportedType, i)
	}
	return Int32(int32(i)), nil
}

func fromUint64(u uint64) (Envelope, error) {
	if u > math.MaxInt32 {
		return Envelope{}, fmt.Errorf("%w: integer %d overflows int32", ErrUnsupportedType, u)
	}
	return Int32(int32(u)), nil
}

func fromFloat64(f float64) (Envelope, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Envelope{}, fmt.Errorf("%w: non-finite float", ErrUnsupportedType)
	}
	if math.Abs(f) > math.MaxFloat32 {
		return Envelope{}, fmt.Errorf("%w: float %g overflows float32", ErrUnsupportedType, f)
	}
	return Float32(float32(f)), nil
}

// fromNumber picks Int32 for integer literals and Float32 for everything else
func fromNumber(n json.Number) (Envelope, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: integer %s overflows int32", ErrUnsupportedType, s)
		}
		return fromInt64(i)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid number %s", ErrUnsupportedType, s)
	}
	return fromFloat64(f)
}

// --------------------------------------------------------------------------
// Decoding (envelope -> external value)
// --------------------------------------------------------------------------

// Decode returns the external value carried by the envelope. The variant tag
// decides the Go type. Only for the String variant a second step is taken:
// text holding a JSON array or object is returned as the reconstructed
// composite ([]any or map[string]any, numbers as json.Number), any other text
// is returned as a plain string.
func Decode(e Envelope) (any, error) {
	switch e.kind {
	case KindString:
		if v, ok := parseComposite(e.text); ok {
			return v, nil
		}
		return e.text, nil
	case KindInt32:
		return e.i32, nil
	case KindBool:
		return e.b, nil
	case KindFloat32:
		return e.f32, nil
	default:
		return nil, fmt.Errorf("%w: no variant set", ErrCodec)
	}
}

// parseComposite tries to reconstruct a composite from its JSON text
func parseComposite(text string) (any, bool) {
	if !looksComposite([]byte(text)) {
		return nil, false
	}
	v, err := decodeJSON([]byte(text))
	if err != nil {
		return nil, false
	}
	return v, true
}

// --------------------------------------------------------------------------
// External JSON representation
// --------------------------------------------------------------------------

// ParseJSON decodes a single JSON literal and encodes it. Integer literals
// become Int32, other numbers Float32, strings String, booleans Bool and
// arrays or objects a composite. null is rejected with ErrUnsupportedType,
// malformed input with ErrSyntax.
func ParseJSON(raw []byte) (Envelope, error) {
	v, err := decodeJSON(raw)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return Encode(v)
}

// FormatJSON renders the decoded value of an envelope as JSON. Floats always
// carry a fraction or an exponent, so Float32(1) is written as 1.0 and stays
// distinguishable from Int32(1).
func FormatJSON(e Envelope) ([]byte, error) {
	switch e.kind {
	case KindInt32:
		return strconv.AppendInt(nil, int64(e.i32), 10), nil
	case KindBool:
		return strconv.AppendBool(nil, e.b), nil
	case KindFloat32:
		return formatFloat32(e.f32)
	}

	v, err := Decode(e)
	if err != nil {
		return nil, err
	}
	return marshalJSON(v)
}

func formatFloat32(f float32) ([]byte, error) {
	f64 := float64(f)
	if math.IsNaN(f64) || math.IsInf(f64, 0) {
		return nil, fmt.Errorf("%w: non-finite float has no JSON form", ErrUnsupportedType)
	}

	format := byte('f')
	if abs := math.Abs(f64); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f64, format, -1, 32)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, '.', '0')
	}
	return b, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// looksComposite reports whether the first non-whitespace byte opens an array or object
func looksComposite(text []byte) bool {
	trimmed := bytes.TrimLeft(text, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{')
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// marshalJSON encodes without HTML escaping and without the trailing newline
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
