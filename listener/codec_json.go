package listener

import (
	"bytes"
	"encoding/json"
)

var jsonNull = []byte("null")

// JSONCodec encodes/decodes requests as JSON.
type JSONCodec struct{}

func (c *JSONCodec) Encode(r *Request) ([]byte, error) {
	return json.Marshal(r)
}

func (c *JSONCodec) Decode(data []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, invalid("not a JSON object: %v", err)
	}
	for _, k := range requiredFields {
		if v, ok := fields[k]; !ok || bytes.Equal(bytes.TrimSpace(v), jsonNull) {
			return nil, invalid("missing %s", k)
		}
	}

	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, invalid("%v", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *JSONCodec) Name() string { return CodecNameJSON }
