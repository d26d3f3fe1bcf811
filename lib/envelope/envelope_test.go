package envelope

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePicksMostSpecificVariant(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  Envelope
	}{
		{"string", "hello", String("hello")},
		{"empty string", "", String("")},
		{"int", 42, Int32(42)},
		{"negative int64", int64(-7), Int32(-7)},
		{"uint16", uint16(65535), Int32(65535)},
		{"max int32", int64(math.MaxInt32), Int32(math.MaxInt32)},
		{"min int32", int64(math.MinInt32), Int32(math.MinInt32)},
		{"bool", true, Bool(true)},
		{"float32", float32(1.5), Float32(1.5)},
		{"float64", 2.25, Float32(2.25)},
		{"json integer", json.Number("42"), Int32(42)},
		{"json float", json.Number("1.0"), Float32(1)},
		{"json exponent", json.Number("1e3"), Float32(1000)},
		{"list", []any{1, 2, 3}, String("[1,2,3]")},
		{"nil list", []any(nil), String("[]")},
		{"map with sorted keys", map[string]any{"b": 1, "a": "x"}, String(`{"a":"x","b":1}`)},
		{"nested", map[string]any{"l": []any{true, nil, "<&>"}}, String(`{"l":[true,null,"<&>"]}`)},
		{"envelope", Int32(3), Int32(3)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.input)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %#v, got %#v", tc.want, got)
		})
	}
}

func TestEncodeRejectsUnsupportedValues(t *testing.T) {
	testCases := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"struct", struct{ A int }{1}},
		{"int overflow", int64(math.MaxInt32) + 1},
		{"uint overflow", uint64(math.MaxUint32)},
		{"json integer overflow", json.Number("2147483648")},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"float32 overflow", 1e300},
		{"channel in list", []any{make(chan int)}},
		{"empty envelope", Envelope{}},
		{"invalid utf8 string", "user\xff"},
		{"invalid utf8 envelope", String("user\xff")},
		{"typed slice", []int{1, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.input)
			assert.ErrorIs(t, err, ErrUnsupportedType)
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  any
	}{
		{"string", "hello", "hello"},
		{"numeric string stays string", "42", "42"},
		{"int", 42, int32(42)},
		{"bool", true, true},
		{"float", float32(1.25), float32(1.25)},
		{"list", []any{1, 2, 3}, []any{json.Number("1"), json.Number("2"), json.Number("3")}},
		{"map", map[string]any{"a": []any{"b"}}, map[string]any{"a": []any{"b"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Encode(tc.input)
			require.NoError(t, err)

			raw, err := e.MarshalBinary()
			require.NoError(t, err)

			back, err := Unmarshal(raw)
			require.NoError(t, err)
			assert.True(t, e.Equal(back))

			got, err := Decode(back)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeOnlyReparsesComposites(t *testing.T) {
	// text that is not an array or object is never reinterpreted
	for _, text := range []string{"true", "1.5", `"quoted"`, "null", "[broken", "{\"a\":1} trailing"} {
		v, err := Decode(String(text))
		require.NoError(t, err)
		assert.Equal(t, text, v)
	}

	v, err := Decode(String("  [1, \"two\"]"))
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("1"), "two"}, v)

	_, err = Decode(Envelope{})
	assert.ErrorIs(t, err, ErrCodec)
}

func TestVariantsStayDistinguishable(t *testing.T) {
	one := []Envelope{String("1"), Int32(1), Bool(true), Float32(1)}
	for i := range one {
		for j := range one {
			assert.Equal(t, i == j, one[i].Equal(one[j]), "%#v vs %#v", one[i], one[j])
		}
	}

	seen := map[string]bool{}
	for _, e := range one {
		raw, err := e.MarshalBinary()
		require.NoError(t, err)
		assert.False(t, seen[string(raw)], "duplicate wire form for %#v", e)
		seen[string(raw)] = true
	}
}

func TestUnmarshalRejectsMalformedData(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown tag", []byte{0x09, 1}},
		{"zero tag", []byte{byte(KindUnknown)}},
		{"short int", []byte{byte(KindInt32), 1, 2}},
		{"long float", []byte{byte(KindFloat32), 1, 2, 3, 4, 5}},
		{"bool without payload", []byte{byte(KindBool)}},
		{"bool out of range", []byte{byte(KindBool), 2}},
		{"invalid utf8", []byte{byte(KindString), 0xff, 0xfe}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := Int32(7)
			err := e.UnmarshalBinary(tc.data)
			assert.ErrorIs(t, err, ErrCodec)
			assert.True(t, Int32(7).Equal(e), "envelope must be left untouched")
		})
	}

	_, err := Envelope{}.MarshalBinary()
	assert.ErrorIs(t, err, ErrCodec)
}

func TestInvalidUTF8HasNoWireForm(t *testing.T) {
	e := String("user\xff")
	assert.False(t, e.IsValid())

	_, err := e.MarshalBinary()
	assert.ErrorIs(t, err, ErrCodec)

	// multi byte runes are fine
	assert.True(t, String("grüße ✓").IsValid())
}

func TestWireFormat(t *testing.T) {
	raw, err := Int32(-2).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(KindInt32), 0xff, 0xff, 0xff, 0xfe}, raw)

	raw, err = String("hi").MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(KindString), 'h', 'i'}, raw)

	raw, err = Bool(true).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(KindBool), 1}, raw)

	raw, err = Float32(1).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(KindFloat32), 0x3f, 0x80, 0, 0}, raw)
}

func TestParseAndFormatJSON(t *testing.T) {
	testCases := []struct {
		in   string
		kind Kind
		out  string
	}{
		{`"hello"`, KindString, `"hello"`},
		{`42`, KindInt32, `42`},
		{`-0`, KindInt32, `0`},
		{`true`, KindBool, `true`},
		{`1.0`, KindFloat32, `1.0`},
		{`0.5`, KindFloat32, `0.5`},
		{`1e-7`, KindFloat32, `1e-07`},
		{` [1, 2, 3] `, KindString, `[1,2,3]`},
		{`{"b": {"c": [1.5]}, "a": null}`, KindString, `{"a":null,"b":{"c":[1.5]}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := ParseJSON([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, e.Kind())

			out, err := FormatJSON(e)
			require.NoError(t, err)
			assert.Equal(t, tc.out, string(out))
		})
	}

	_, err := ParseJSON([]byte(`null`))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ParseJSON([]byte(`nope`))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = ParseJSON([]byte(`1 2`))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = FormatJSON(Float32(float32(math.Inf(-1))))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
