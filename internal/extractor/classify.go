package extractor

import (
	"encoding/json"
)

// IsErrorResult classifies an extraction outcome. A result is an error when
// it is absent, not a JSON object, carries a truthy error field, or reports
// success=false.
func IsErrorResult(result json.RawMessage) bool {
	if len(result) == 0 {
		return true
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(result, &obj); err != nil || obj == nil {
		return true
	}
	if truthy(obj["error"]) || truthy(obj["Error"]) {
		return true
	}
	if success, ok := obj["success"].(bool); ok && !success {
		return true
	}
	return false
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
