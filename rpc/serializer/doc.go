// Package serializer converts common.Message values to bytes and back. Nodes
// use it on both sides of a forwarded request, clients use it to talk to any
// node.
//
// Implementations:
//
//   - binarySerializerImpl: compact flag based format. Only present fields are
//     written, boolean fields cost no payload at all. The default of sdcs.
//
//   - jsonSerializerImpl: encoding/json. Readable on the wire, the envelope
//     bytes in Message.Value show up base64 encoded.
//
//   - gobSerializerImpl: encoding/gob. Each message is self describing, which
//     makes it the largest of the three formats.
//
// All implementations are stateless and safe for concurrent use. Client and
// server must agree on the implementation, there is no negotiation.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(*common.NewGetRequest("user:42"))
//	// ... send data ...
//	var resp common.Message
//	err = s.Deserialize(received, &resp)
package serializer
