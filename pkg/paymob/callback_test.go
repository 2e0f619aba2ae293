package paymob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const serverCallbackBody = `{
  "type": "TRANSACTION",
  "obj": {
    "id": 987654,
    "pending": false,
    "amount_cents": 10000,
    "success": true,
    "is_auth": false,
    "is_capture": false,
    "is_standalone_payment": true,
    "is_voided": false,
    "is_refunded": false,
    "is_3d_secure": true,
    "integration_id": 4455,
    "has_parent_transaction": false,
    "order": {"id": 123456, "merchant_order_id": "ref-1"},
    "created_at": "2024-05-01T10:00:00.000000",
    "currency": "EGP",
    "error_occured": false,
    "owner": 77,
    "source_data": {"pan": "2346", "type": "card", "sub_type": "MasterCard"}
  }
}`

func TestParseServerCallbackMatchesQueryConcatenation(t *testing.T) {
	callback, err := ParseServerCallback([]byte(serverCallbackBody))
	require.NoError(t, err)
	require.Equal(t, "TRANSACTION", callback.Type)

	fromJSON, err := ConcatenateFields(callback.Fields)
	require.NoError(t, err)
	fromQuery, err := ConcatenateFields(sampleQueryFields())
	require.NoError(t, err)
	require.Equal(t, fromQuery, fromJSON)

	signature := Sign(fromQuery, testSecret)
	require.True(t, VerifyCallback(callback.Fields, signature, testSecret))
}

func TestParseServerCallbackRejectsMissingObject(t *testing.T) {
	_, err := ParseServerCallback([]byte(`{"type": "TRANSACTION"}`))
	require.ErrorIs(t, err, ErrInvalidCallback)

	_, err = ParseServerCallback([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidCallback)
}

func TestParseServerCallbackReadsBodySignature(t *testing.T) {
	callback, err := ParseServerCallback([]byte(`{"hmac": "ABC", "obj": {"id": 1, "order": 2, "success": false}}`))
	require.NoError(t, err)
	require.Equal(t, "ABC", callback.Signature)

	result, err := ResultFrom(callback.Fields)
	require.NoError(t, err)
	require.Equal(t, "2", result.OrderID)
	require.Equal(t, "1", result.TransactionID)
	require.False(t, result.Success)
}

func TestResultFromQueryFields(t *testing.T) {
	result, err := ResultFrom(sampleQueryFields())
	require.NoError(t, err)
	require.Equal(t, TransactionResult{OrderID: "123456", TransactionID: "987654", Success: true}, result)

	_, err = ResultFrom(QueryFields{"success": "true"})
	require.ErrorIs(t, err, ErrMissingField)
}

func TestJSONFieldsMissingPath(t *testing.T) {
	fields := NewJSONFields(map[string]interface{}{"source_data": map[string]interface{}{"pan": "1"}})

	value, ok := fields.Get("source_data.pan")
	require.True(t, ok)
	require.Equal(t, "1", value)

	_, ok = fields.Get("source_data.type")
	require.False(t, ok)
	_, ok = fields.Get("source_data.pan.extra")
	require.False(t, ok)
}
