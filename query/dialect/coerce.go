package dialect

import (
	"fmt"
	"strconv"
	"time"

	"github.com/satishbabariya/objgraph/meta"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// CoerceValue normalizes the loosely typed values drivers return ([]byte for
// text on MySQL, int64 for booleans on SQLite, strings for timestamps) into
// the Go type matching attr.
func (b *base) CoerceValue(attr *meta.DbAttribute, v any) (any, error) {
	if v == nil || attr == nil {
		return v, nil
	}
	if raw, ok := v.([]byte); ok && attr.Type != meta.TypeBlob {
		v = string(raw)
	}

	switch attr.Type {
	case meta.TypeBigInt, meta.TypeInteger, meta.TypeSmallInt:
		return toInt64(attr, v)
	case meta.TypeBoolean:
		return toBool(attr, v)
	case meta.TypeDecimal, meta.TypeDouble, meta.TypeFloat:
		return toFloat64(attr, v)
	case meta.TypeChar, meta.TypeVarchar, meta.TypeClob:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case meta.TypeDate, meta.TypeTime, meta.TypeTimestamp:
		return toTime(attr, v)
	}
	return v, nil
}

func toInt64(attr *meta.DbAttribute, v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil, coerceError(attr, v, err)
		}
		return n, nil
	}
	return nil, coerceError(attr, v, nil)
}

func toBool(attr *meta.DbAttribute, v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case string:
		bv, err := strconv.ParseBool(x)
		if err != nil {
			return nil, coerceError(attr, v, err)
		}
		return bv, nil
	}
	return nil, coerceError(attr, v, nil)
}

func toFloat64(attr *meta.DbAttribute, v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, coerceError(attr, v, err)
		}
		return f, nil
	}
	return nil, coerceError(attr, v, nil)
}

func toTime(attr *meta.DbAttribute, v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return nil, coerceError(attr, v, nil)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	}
	return nil, coerceError(attr, v, nil)
}

func coerceError(attr *meta.DbAttribute, v any, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s (%s) cannot hold %T %v: %v", ErrCoercion, attr, attr.Type, v, v, cause)
	}
	return fmt.Errorf("%w: %s (%s) cannot hold %T %v", ErrCoercion, attr, attr.Type, v, v)
}
