package paymob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidCallback marks a callback body that does not have the expected shape.
var ErrInvalidCallback = errors.New("invalid callback payload")

const callbackSchema = `{
  "type": "object",
  "required": ["obj"],
  "properties": {
    "type": {"type": "string"},
    "hmac": {"type": "string"},
    "obj": {
      "type": "object",
      "required": ["id", "order", "success"],
      "properties": {
        "success": {"type": ["boolean", "string"]},
        "pending": {"type": ["boolean", "string"]},
        "order": {"type": ["object", "integer", "string"]}
      }
    }
  }
}`

var compiledCallbackSchema = jsonschema.MustCompileString("paymob-callback.json", callbackSchema)

// ServerCallback is the decoded body of a transaction-processed webhook.
type ServerCallback struct {
	Type      string
	Signature string
	Fields    JSONFields
	Raw       map[string]interface{}
}

// ParseServerCallback validates and decodes a webhook body. The signature is
// read from the body when present; callers may override it with the query value.
func ParseServerCallback(body []byte) (ServerCallback, error) {
	payload, err := decodeObject(body)
	if err != nil {
		return ServerCallback{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	if err := compiledCallbackSchema.Validate(payload); err != nil {
		return ServerCallback{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	obj, _ := payload["obj"].(map[string]interface{})
	callback := ServerCallback{
		Fields: NewJSONFields(obj),
		Raw:    obj,
	}
	if value, ok := payload["type"].(string); ok {
		callback.Type = value
	}
	if value, ok := payload["hmac"].(string); ok {
		callback.Signature = value
	}

	return callback, nil
}

// TransactionResult summarises the outcome reported by a callback.
type TransactionResult struct {
	OrderID       string
	TransactionID string
	Success       bool
	Pending       bool
}

// ResultFrom extracts the settlement outcome from either callback flavour.
func ResultFrom(fields FieldExtractor) (TransactionResult, error) {
	orderID, ok := fields.Get("order")
	if !ok || strings.TrimSpace(orderID) == "" {
		return TransactionResult{}, fmt.Errorf("%w: order", ErrMissingField)
	}

	success, ok := fields.Get("success")
	if !ok {
		return TransactionResult{}, fmt.Errorf("%w: success", ErrMissingField)
	}

	transactionID, _ := fields.Get("id")
	pending, _ := fields.Get("pending")

	return TransactionResult{
		OrderID:       strings.TrimSpace(orderID),
		TransactionID: strings.TrimSpace(transactionID),
		Success:       strings.EqualFold(strings.TrimSpace(success), "true"),
		Pending:       strings.EqualFold(strings.TrimSpace(pending), "true"),
	}, nil
}
