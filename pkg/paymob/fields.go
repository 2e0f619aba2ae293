package paymob

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CallbackFields is the ordered list of transaction attributes covered by the
// callback HMAC. The order is fixed by the gateway.
var CallbackFields = []string{
	"amount_cents",
	"created_at",
	"currency",
	"error_occured",
	"has_parent_transaction",
	"id",
	"integration_id",
	"is_3d_secure",
	"is_auth",
	"is_capture",
	"is_refunded",
	"is_standalone_payment",
	"is_voided",
	"order",
	"owner",
	"pending",
	"source_data.pan",
	"source_data.sub_type",
	"source_data.type",
	"success",
}

// FieldExtractor reads a callback attribute by its dotted path.
type FieldExtractor interface {
	Get(path string) (string, bool)
}

// QueryFields exposes the flat key/value pairs of the browser redirect.
type QueryFields map[string]string

// Get returns the value stored under the literal key.
func (q QueryFields) Get(path string) (string, bool) {
	value, ok := q[path]
	return value, ok
}

// JSONFields exposes the transaction object of a server-to-server callback.
type JSONFields struct {
	obj map[string]interface{}
}

// NewJSONFields wraps an already decoded transaction object.
func NewJSONFields(obj map[string]interface{}) JSONFields {
	return JSONFields{obj: obj}
}

// Get walks the dotted path through nested objects. An object found at the
// end of the path resolves to its "id" member, which is how the order
// reference is nested in the callback body.
func (j JSONFields) Get(path string) (string, bool) {
	if j.obj == nil {
		return "", false
	}

	var current interface{} = j.obj
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = node[segment]
		if !ok {
			return "", false
		}
	}

	if nested, ok := current.(map[string]interface{}); ok {
		id, exists := nested["id"]
		if !exists {
			return "", false
		}
		current = id
	}

	return renderValue(current)
}

func renderValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case map[string]interface{}, []interface{}:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func decodeObject(data []byte) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
