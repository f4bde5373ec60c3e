package converter

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ConvertScalarToString renders a JSON-decoded scalar as the text form stored in
// the cache. Maps and slices are not scalars and are rejected.
func ConvertScalarToString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("unsupported type %T for conversion to string", value)
	}
}
