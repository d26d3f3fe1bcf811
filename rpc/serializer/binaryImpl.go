package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/sdcs/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	[1 byte MsgType][1 byte flags][optional fields in flag order]
//
// Strings and byte slices are written as 4 byte length + data, Code as 8 bytes.
// Boolean fields are carried by their flag alone. All integers are big endian.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey       byte = 1 << 0
	hasValue     byte = 1 << 1
	hasOk        byte = 1 << 2
	hasForwarded byte = 1 << 3
	hasCode      byte = 1 << 4
	hasErr       byte = 1 << 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	var flags byte = 0
	pos := 2 // Start after MsgType and flags

	if msg.Key != "" {
		flags |= hasKey
		pos = putBytes(result, pos, []byte(msg.Key))
	}

	// an empty but present value is kept (nil and []byte{} differ)
	if msg.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, msg.Value)
	}

	if msg.Ok {
		flags |= hasOk
	}

	if msg.Forwarded {
		flags |= hasForwarded
	}

	if msg.Code != 0 {
		flags |= hasCode
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Code)
		pos += 8
	}

	if msg.Err != "" {
		flags |= hasErr
		putBytes(result, pos, []byte(msg.Err))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{
		MsgType: common.MessageType(data[0]),
	}
	flags := data[1]
	pos := 2

	if flags&hasKey != 0 {
		key, next, err := readBytes(data, pos, "key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
		pos = next
	}

	if flags&hasValue != 0 {
		value, next, err := readBytes(data, pos, "value")
		if err != nil {
			return err
		}
		// copy, the transport may reuse data
		msg.Value = make([]byte, len(value))
		copy(msg.Value, value)
		pos = next
	}

	msg.Ok = flags&hasOk != 0
	msg.Forwarded = flags&hasForwarded != 0

	if flags&hasCode != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for code")
		}
		msg.Code = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	if flags&hasErr != 0 {
		errBytes, next, err := readBytes(data, pos, "error")
		if err != nil {
			return err
		}
		msg.Err = string(errBytes)
		pos = next
	}

	if pos != len(data) {
		return fmt.Errorf("unexpected %d trailing bytes", len(data)-pos)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != "" {
		size += 4 + len(msg.Key) // 4 bytes for length + key string
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value) // 4 bytes for length + value bytes
	}
	if msg.Code != 0 {
		size += 8 // uint64
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}

	return size
}

// putBytes writes a length prefixed byte slice at pos and returns the next position
func putBytes(dst []byte, pos int, data []byte) int {
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(data)))
	pos += 4
	copy(dst[pos:pos+len(data)], data)
	return pos + len(data)
}

// readBytes reads a length prefixed byte slice at pos, the result aliases data
func readBytes(data []byte, pos int, field string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4

	if n < 0 || pos+n > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", field)
	}
	return data[pos : pos+n], pos + n, nil
}
