package compiler

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// formatLiteral renders a property value as a source literal. Strings are
// quoted without escaping unless raw is set, in which case they are
// emitted as written.
func formatLiteral(v interface{}, raw bool) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		if raw {
			return val
		}
		return `"` + val + `"`
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
