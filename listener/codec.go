package listener

// Codec decodes submission requests and encodes them for clients.
type Codec interface {
	// Encode serializes a request.
	Encode(r *Request) ([]byte, error)

	// Decode parses and validates a request. Malformed input yields an
	// error wrapping crontab.ErrInvalidRequest.
	Decode(data []byte) (*Request, error)

	// Name returns the codec identifier.
	Name() string
}

// Codec names.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &JSONCodec{}
	}
}
