package firestore

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Value mirrors the REST representation of a Firestore value. Exactly one
// field is set.
type Value struct {
	NullValue      *struct{}   `json:"nullValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"`
	DoubleValue    *float64    `json:"doubleValue,omitempty"`
	TimestampValue *string     `json:"timestampValue,omitempty"`
	StringValue    *string     `json:"stringValue,omitempty"`
	BytesValue     *string     `json:"bytesValue,omitempty"`
	ArrayValue     *ArrayValue `json:"arrayValue,omitempty"`
	MapValue       *MapValue   `json:"mapValue,omitempty"`
	GeoPointValue  *GeoPoint   `json:"geoPointValue,omitempty"`
}

type ArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

type MapValue struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EncodeFields converts a plain Go map into Firestore field values.
func EncodeFields(fields map[string]any) (map[string]Value, error) {
	encoded := make(map[string]Value, len(fields))
	for key, raw := range fields {
		value, err := encodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		encoded[key] = value
	}
	return encoded, nil
}

func encodeValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{NullValue: &struct{}{}}, nil
	case bool:
		return Value{BooleanValue: &v}, nil
	case string:
		return Value{StringValue: &v}, nil
	case int:
		s := strconv.FormatInt(int64(v), 10)
		return Value{IntegerValue: &s}, nil
	case int64:
		s := strconv.FormatInt(v, 10)
		return Value{IntegerValue: &s}, nil
	case float64:
		return Value{DoubleValue: &v}, nil
	case float32:
		f := float64(v)
		return Value{DoubleValue: &f}, nil
	case time.Time:
		s := v.UTC().Format(time.RFC3339Nano)
		return Value{TimestampValue: &s}, nil
	case []byte:
		s := base64.StdEncoding.EncodeToString(v)
		return Value{BytesValue: &s}, nil
	case map[string]any:
		fields, err := EncodeFields(v)
		if err != nil {
			return Value{}, err
		}
		return Value{MapValue: &MapValue{Fields: fields}}, nil
	case []any:
		values := make([]Value, 0, len(v))
		for _, item := range v {
			encoded, err := encodeValue(item)
			if err != nil {
				return Value{}, err
			}
			values = append(values, encoded)
		}
		return Value{ArrayValue: &ArrayValue{Values: values}}, nil
	case []string:
		values := make([]Value, 0, len(v))
		for i := range v {
			values = append(values, Value{StringValue: &v[i]})
		}
		return Value{ArrayValue: &ArrayValue{Values: values}}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// DecodeFields converts Firestore field values back into a plain Go map.
func DecodeFields(fields map[string]Value) map[string]any {
	decoded := make(map[string]any, len(fields))
	for key, value := range fields {
		decoded[key] = decodeValue(value)
	}
	return decoded
}

func decodeValue(value Value) any {
	switch {
	case value.BooleanValue != nil:
		return *value.BooleanValue
	case value.IntegerValue != nil:
		if parsed, err := strconv.ParseInt(*value.IntegerValue, 10, 64); err == nil {
			return parsed
		}
		return *value.IntegerValue
	case value.DoubleValue != nil:
		return *value.DoubleValue
	case value.TimestampValue != nil:
		if parsed, err := time.Parse(time.RFC3339Nano, *value.TimestampValue); err == nil {
			return parsed
		}
		return *value.TimestampValue
	case value.StringValue != nil:
		return *value.StringValue
	case value.BytesValue != nil:
		if decoded, err := base64.StdEncoding.DecodeString(*value.BytesValue); err == nil {
			return decoded
		}
		return *value.BytesValue
	case value.ArrayValue != nil:
		items := make([]any, 0, len(value.ArrayValue.Values))
		for _, item := range value.ArrayValue.Values {
			items = append(items, decodeValue(item))
		}
		return items
	case value.MapValue != nil:
		return DecodeFields(value.MapValue.Fields)
	case value.GeoPointValue != nil:
		return *value.GeoPointValue
	default:
		return nil
	}
}
