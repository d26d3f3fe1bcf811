// Package envelope implements the type-preserving value encoding used by the
// sharded key-value store. A value crosses the network as an Envelope: a tagged
// union with exactly one active variant (String, Int32, Bool, Float32), so that
// 1, true and 1.0 stay distinguishable after a round trip.
//
// Composite values (sequences and mappings) have no tag of their own. They are
// serialized to canonical JSON text and carried in the String variant. Decoding
// is therefore a two-step process:
//
//  1. The tag selects the variant, it is never guessed from the payload.
//  2. For the String variant only, text holding a JSON array or object is
//     reconstructed into the composite, any other text stays a plain string.
//
// Wire Format:
//
//	+------+----------------------------------------------+
//	| tag  | payload                                      |
//	| 1 B  | UTF-8 text | int32 BE | bool byte | f32 bits |
//	+------+----------------------------------------------+
//
// Usage Example:
//
//	e, err := envelope.Encode([]any{1, 2, 3})   // String("[1,2,3]")
//	raw, _ := e.MarshalBinary()
//	back, _ := envelope.Unmarshal(raw)
//	v, _ := envelope.Decode(back)                // []any{json.Number("1"), ...}
//
// Errors:
//
//   - ErrUnsupportedType: the external value has no matching variant
//     (nil, out of range integers, non-finite floats, structs, ...).
//   - ErrCodec: a malformed envelope or wire form.
//   - ErrSyntax: ParseJSON was given malformed JSON.
package envelope
