package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/shardkit/types"
)

// ErrEncode is returned when a field value cannot be encoded to bytes.
var ErrEncode = errors.New("cannot encode field")

// Encoder turns one sample field into entry bytes.
type Encoder func(field string, value any) ([]byte, error)

// EncodeField is the default Encoder. The field's extension selects the
// encoding; []byte values always pass through unchanged.
//
//	txt, text                          UTF-8 string
//	cls, cls2, class, count, index,    decimal integer
//	inx, id
//	json, jsn                          JSON
//	mp, msgpack                        MessagePack
//	cbor                               CBOR
//	yaml, yml                          YAML
//
// Strings under any other extension are written as UTF-8.
func EncodeField(field string, value any) ([]byte, error) {
	if b, ok := value.([]byte); ok {
		return b, nil
	}

	switch types.FieldExt(field) {
	case "txt", "text":
		if s, ok := value.(string); ok {
			return []byte(s), nil
		}
	case "cls", "cls2", "class", "count", "index", "inx", "id":
		n, err := toInt(value)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrEncode, field, err)
		}
		return []byte(strconv.FormatInt(n, 10)), nil
	case "json", "jsn":
		return wrapEncode(field)(json.Marshal(value))
	case "mp", "msgpack":
		return wrapEncode(field)(msgpack.Marshal(normalizeNumbers(value)))
	case "cbor":
		return wrapEncode(field)(cbor.Marshal(normalizeNumbers(value)))
	case "yaml", "yml":
		return wrapEncode(field)(yaml.Marshal(normalizeNumbers(value)))
	default:
		if s, ok := value.(string); ok {
			return []byte(s), nil
		}
	}
	return nil, fmt.Errorf("%w %q: unsupported value type %T", ErrEncode, field, value)
}

// RawEncoder accepts only []byte and string values.
func RawEncoder(field string, value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%w %q: %T is not bytes after encoding", ErrEncode, field, value)
	}
}

func wrapEncode(field string) func([]byte, error) ([]byte, error) {
	return func(b []byte, err error) ([]byte, error) {
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrEncode, field, err)
		}
		return b, nil
	}
}

// normalizeNumbers replaces json.Number in decoded JSON with int64, or
// float64 when the number is not integral, so codecs other than JSON
// encode numbers as numbers instead of strings. Other values pass through.
func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = normalizeNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalizeNumbers(e)
		}
		return out
	default:
		return value
	}
}

// toInt accepts the integer shapes a class label arrives in, including
// float64 and json.Number from decoded JSON.
func toInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported class type %T", value)
	}
}

func uintToInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("class value %d overflows int64", v)
	}
	return int64(v), nil
}

func floatToInt(v float64) (int64, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("non-integral class value %v", v)
	}
	// 2^63 is exactly representable; int64 covers [-2^63, 2^63).
	if v < -(1<<63) || v >= 1<<63 {
		return 0, fmt.Errorf("class value %v overflows int64", v)
	}
	return int64(v), nil
}
