package storetest

import (
	"encoding/json"
	"reflect"
)

// jsonEqual compares payloads structurally. JSONB and BSON backends reorder
// keys and drop whitespace.
func jsonEqual(a, b []byte) bool {
	var left, right any
	if err := json.Unmarshal(a, &left); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &right); err != nil {
		return false
	}
	return reflect.DeepEqual(left, right)
}
