package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

func decodeJSON(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(out)
}

// asFloat coerces the mixed string/number cells exchange kline arrays carry.
func asFloat(v any) (float64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseFloat(val, 64)
	case json.Number:
		return val.Float64()
	case float64:
		return val, nil
	default:
		return 0, fmt.Errorf("unsupported numeric cell %T", v)
	}
}

// asInt coerces millisecond timestamps that arrive as strings or numbers.
func asInt(v any) (int64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseInt(val, 10, 64)
	case json.Number:
		return val.Int64()
	case float64:
		return int64(val), nil
	default:
		return 0, fmt.Errorf("unsupported integer cell %T", v)
	}
}
