package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/sdcs/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// The envelope bytes of Message.Value and the key are base64 encoded by
// encoding/json, so keys that are not valid UTF-8 survive unchanged.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// jsonMessage is the json form of common.Message. Key shadows Message.Key,
// encoding/json would replace invalid UTF-8 in a string with U+FFFD.
type jsonMessage struct {
	common.Message
	Key []byte `json:"key,omitempty"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(jsonMessage{Message: msg, Key: []byte(msg.Key)})
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var jm jsonMessage
	if err := json.Unmarshal(b, &jm); err != nil {
		return err
	}
	*msg = jm.Message
	msg.Key = string(jm.Key)
	return nil
}
