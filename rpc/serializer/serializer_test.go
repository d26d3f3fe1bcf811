package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// mustEnvelope returns the wire form of an envelope
func mustEnvelope(e envelope.Envelope) []byte {
	b, err := e.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return b
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Set request
		{
			MsgType: common.MsgTKVSet,
			Key:     "test-key",
			Value:   mustEnvelope(envelope.String("test-value")),
		},

		// Forwarded set request
		{
			MsgType:   common.MsgTKVSet,
			Key:       "n",
			Value:     mustEnvelope(envelope.Int32(42)),
			Forwarded: true,
		},

		// Keys are opaque bytes, they need not be valid UTF-8
		{
			MsgType: common.MsgTKVGet,
			Key:     "user\xff",
		},
		{
			MsgType: common.MsgTKVRemove,
			Key:     "\xfe\x00user\uFFFD",
		},

		// Get response
		{
			MsgType: common.MsgTKVGet,
			Value:   mustEnvelope(envelope.Float32(1.5)),
			Ok:      true,
		},

		// Remove response
		{
			MsgType: common.MsgTKVRemove,
			Ok:      true,
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    3,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType:   common.MsgTKVGet,
			Key:       "ключ",
			Value:     mustEnvelope(envelope.Bool(true)),
			Forwarded: true,
			Ok:        true,
			Code:      1,
			Err:       "some error",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestKeysAreNotNormalized tests that keys differing only in invalid UTF-8
// bytes stay distinct, a replaced key would be routed to another node
func TestKeysAreNotNormalized(t *testing.T) {
	keys := []string{"user\xff", "user\xfe", "user\uFFFD"}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, key := range keys {
				data, err := serializer.Serialize(*common.NewGetRequest(key))
				if err != nil {
					t.Fatalf("Failed to serialize key %q: %v", key, err)
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Failed to deserialize key %q: %v", key, err)
				}
				if result.Key != key {
					t.Errorf("Expected key %q, got %q", key, result.Key)
				}
			}
		})
	}
}

// TestDeserializeResetsMessage tests that no field of a previous message survives
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTKVRemove})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			result := common.Message{Key: "stale", Ok: true, Forwarded: true, Err: "stale", Code: 7, Value: []byte{1}}
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !reflect.DeepEqual(common.Message{MsgType: common.MsgTKVRemove}, result) {
				t.Errorf("stale fields survived: %+v", result)
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTUnknown; msgType <= common.MsgTKVRemove; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestEnvelopeSurvivesTransport tests that the value variant is kept by every serializer
func TestEnvelopeSurvivesTransport(t *testing.T) {
	values := []envelope.Envelope{
		envelope.String("1"),
		envelope.Int32(1),
		envelope.Bool(true),
		envelope.Float32(1),
		envelope.String(`[1,2,3]`),
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, want := range values {
				data, err := serializer.Serialize(*common.NewGetResponse(mustEnvelope(want), true, nil))
				if err != nil {
					t.Fatalf("Failed to serialize: %v", err)
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Failed to deserialize: %v", err)
				}

				got, err := envelope.Unmarshal(result.Value)
				if err != nil {
					t.Fatalf("Failed to decode envelope: %v", err)
				}
				if !want.Equal(got) {
					t.Errorf("Envelope mismatch: expected %#v, got %#v", want, got)
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVSet,
				Key:     "test",
				Value:   []byte{},
			},
		},
		{
			name: "Message with empty key but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTKVGet,
				Ok:      true,
			},
		},
		{
			name: "Forwarded flag only",
			msg: common.Message{
				MsgType:   common.MsgTKVRemove,
				Forwarded: true,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// nil and empty values must stay distinguishable
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Message doesn't match after round trip:\nOriginal: %+v\nResult: %+v", tc.msg, result)
			}
		})
	}
}

// TestBinaryLayout tests the exact byte layout of the binary serializer
func TestBinaryLayout(t *testing.T) {
	serializer := NewBinarySerializer()

	data, err := serializer.Serialize(common.Message{
		MsgType:   common.MsgTKVSet,
		Key:       "a",
		Value:     []byte{2, 0, 0, 0, 42},
		Forwarded: true,
	})
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	expected := []byte{
		byte(common.MsgTKVSet), hasKey | hasValue | hasForwarded,
		0, 0, 0, 1, 'a',
		0, 0, 0, 5, 2, 0, 0, 0, 42,
	}
	if !reflect.DeepEqual(expected, data) {
		t.Errorf("Layout mismatch:\nExpected: %v\nGot:      %v", expected, data)
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, hasKey, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, hasValue, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated code",
			data:        []byte{1, hasCode, 0, 0, 0},
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{1, 0, 9},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
