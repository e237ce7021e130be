package sqldb

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb/v2"
)

// normalizeValue converts a scanned driver value into something that
// encodes as JSON without loss of meaning. dbType is upper-cased.
func normalizeValue(value any, dbType string) (any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		if dbType == "UUID" && len(typed) == 16 {
			return uuid.UUID(typed).String(), nil
		}
		if isNumericType(dbType) {
			return numericValue(string(typed))
		}
		return string(typed), nil
	case string:
		if isNumericType(dbType) {
			return numericValue(typed)
		}
		return typed, nil
	case float64:
		return finiteFloat(typed)
	case float32:
		return finiteFloat(float64(typed))
	case uuid.UUID:
		return typed.String(), nil
	case duckdb.Decimal:
		return finiteFloat(typed.Float64())
	case interface{ Float64() float64 }:
		return finiteFloat(typed.Float64())
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return typed, nil
	}

	if id, ok := uuidArray(value); ok {
		return id, nil
	}
	if _, err := json.Marshal(value); err != nil {
		return nil, fmt.Errorf("unsupported value of type %T: %w", value, err)
	}
	return value, nil
}

func isNumericType(dbType string) bool {
	return strings.HasPrefix(dbType, "NUMERIC") || strings.HasPrefix(dbType, "DECIMAL")
}

func numericValue(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" || !json.Valid([]byte(text)) || !(text[0] == '-' || (text[0] >= '0' && text[0] <= '9')) {
		return nil, fmt.Errorf("numeric value %q is not representable", text)
	}
	return json.Number(text), nil
}

func finiteFloat(value float64) (any, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("float value %v is not representable", value)
	}
	return value, nil
}

func uuidArray(value any) (string, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Array || rv.Len() != 16 || rv.Type().Elem().Kind() != reflect.Uint8 {
		return "", false
	}
	var id uuid.UUID
	for i := range id {
		id[i] = byte(rv.Index(i).Uint())
	}
	return id.String(), true
}

