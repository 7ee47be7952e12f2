package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ColumnType is the closed set of scalar kinds a column may declare.
// Each kind owns its JSON acceptance rules, its coercion to a typed Go
// value, and its PostgreSQL parameter type.
type ColumnType string

const (
	TypeBool      ColumnType = "bool"
	TypeI32       ColumnType = "i32"
	TypeI64       ColumnType = "i64"
	TypeF32       ColumnType = "f32"
	TypeF64       ColumnType = "f64"
	TypeString    ColumnType = "string"
	TypeTimestamp ColumnType = "timestamp"
	TypeJSON      ColumnType = "json"
)

// ParseColumnType resolves a schema type token to a ColumnType.
func ParseColumnType(token string) (ColumnType, error) {
	switch t := ColumnType(token); t {
	case TypeBool, TypeI32, TypeI64, TypeF32, TypeF64, TypeString, TypeTimestamp, TypeJSON:
		return t, nil
	default:
		return "", fmt.Errorf("unknown column type %q", token)
	}
}

// PostgresType returns the PostgreSQL type name a column of this kind
// binds to.
func (t ColumnType) PostgresType() string {
	switch t {
	case TypeBool:
		return "BOOLEAN"
	case TypeI32:
		return "INTEGER"
	case TypeI64:
		return "BIGINT"
	case TypeF32:
		return "REAL"
	case TypeF64:
		return "DOUBLE PRECISION"
	case TypeString:
		return "VARCHAR"
	case TypeTimestamp:
		return "TIMESTAMPTZ"
	case TypeJSON:
		return "JSONB"
	default:
		return ""
	}
}

// Coerce converts a decoded JSON value into the typed Go value bound as
// a statement parameter. The input is expected to come from a decoder
// configured with UseNumber, so numbers arrive as json.Number and i64
// values keep full precision. A nil input is never passed here; absent
// and explicit-null values are handled by the caller.
func (t ColumnType) Coerce(v any) (any, error) {
	switch t {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %s", JSONShape(v))
		}
		return b, nil

	case TypeI32:
		i, err := coerceInt(v)
		if err != nil {
			return nil, err
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("integer %d out of range for i32", i)
		}
		return int32(i), nil

	case TypeI64:
		return coerceInt(v)

	case TypeF32:
		f, err := coerceFloat(v)
		if err != nil {
			return nil, err
		}
		return float32(f), nil

	case TypeF64:
		return coerceFloat(v)

	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", JSONShape(v))
		}
		return s, nil

	case TypeTimestamp:
		return coerceTimestamp(v)

	case TypeJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("value is not representable as JSON: %w", err)
		}
		return raw, nil

	default:
		return nil, fmt.Errorf("unknown column type %q", string(t))
	}
}

func coerceInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %s", JSONShape(v))
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("expected integer, got number %s", n.String())
	}
	return i, nil
}

func coerceFloat(v any) (float64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %s", JSONShape(v))
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("number %s out of range", n.String())
	}
	return f, nil
}

// coerceTimestamp accepts either a JSON number (seconds since the Unix
// epoch, fractional part allowed) or an RFC 3339 string.
func coerceTimestamp(v any) (time.Time, error) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %s out of range", val.String())
		}
		// Reject values whose integer part cannot survive the float
		// to int64 conversion below.
		if math.Abs(f) > 1<<53 {
			return time.Time{}, fmt.Errorf("timestamp %s out of range", val.String())
		}
		sec := int64(math.Floor(f))
		nsec := int64((f - math.Floor(f)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, fmt.Errorf("could not parse timestamp: %w", err)
		}
		return ts, nil
	default:
		return time.Time{}, fmt.Errorf("expected unix seconds or RFC 3339 string, got %s", JSONShape(v))
	}
}

// JSONShape names the JSON shape of a decoded value, for error messages.
func JSONShape(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
