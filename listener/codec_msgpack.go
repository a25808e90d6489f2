package listener

import (
	"encoding/json"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec encodes/decodes requests as MessagePack maps with the same
// keys as the JSON form. Args are carried as native MessagePack values and
// converted to JSON for the job.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(r *Request) ([]byte, error) {
	var args any
	if len(r.Args) > 0 {
		if err := json.Unmarshal(r.Args, &args); err != nil {
			return nil, err
		}
	}
	var count any = r.Count.Attempts
	if r.Count.Stack != nil {
		count = r.Count.Stack
	}
	return msgpack.Marshal(map[string]any{
		"name":  r.Name,
		"args":  args,
		"time":  r.Time,
		"queue": r.Queue,
		"count": count,
	})
}

func (c *MsgpackCodec) Decode(data []byte) (*Request, error) {
	var fields map[string]any
	if err := msgpack.Unmarshal(data, &fields); err != nil {
		return nil, invalid("not a MessagePack map: %v", err)
	}
	for _, k := range requiredFields {
		if v, ok := fields[k]; !ok || v == nil {
			return nil, invalid("missing %s", k)
		}
	}

	var r Request
	var ok bool
	if r.Name, ok = fields["name"].(string); !ok {
		return nil, invalid("name must be a string")
	}
	if r.Queue, ok = fields["queue"].(string); !ok {
		return nil, invalid("queue must be a string")
	}
	if r.Time, ok = toInt64(fields["time"]); !ok {
		return nil, invalid("time must be an integer")
	}

	switch v := fields["count"].(type) {
	case []any:
		stack := make([]int64, len(v))
		for i, e := range v {
			if stack[i], ok = toInt64(e); !ok {
				return nil, invalid("count entries must be integers")
			}
		}
		r.Count = Retries(stack...)
	default:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalid("count must be an array of timestamps or a number")
		}
		r.Count = RetryTimes(int(n))
	}

	if args, present := fields["args"]; present {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, invalid("args: %v", err)
		}
		r.Args = raw
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }

// toInt64 converts any MessagePack number holding an integral value.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
