package paymob

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSecret = "callback-secret"

func sampleQueryFields() QueryFields {
	return QueryFields{
		"amount_cents":           "10000",
		"created_at":             "2024-05-01T10:00:00.000000",
		"currency":               "EGP",
		"error_occured":          "false",
		"has_parent_transaction": "false",
		"id":                     "987654",
		"integration_id":         "4455",
		"is_3d_secure":           "true",
		"is_auth":                "false",
		"is_capture":             "false",
		"is_refunded":            "false",
		"is_standalone_payment":  "true",
		"is_voided":              "false",
		"order":                  "123456",
		"owner":                  "77",
		"pending":                "false",
		"source_data.pan":        "2346",
		"source_data.sub_type":   "MasterCard",
		"source_data.type":       "card",
		"success":                "true",
	}
}

func TestSignMatchesReferenceVector(t *testing.T) {
	require.Equal(t,
		"3926a207c8c42b0c41792cbd3e1a1aaaf5f7a25704f62dfc939c4987dd7ce060009c5bb1c2447355b3216f10b537e9afa7b64a4e5391b0d631172d07939e087a",
		Sign("abc", "key"),
	)
}

func TestConcatenateFieldsUsesGatewayOrder(t *testing.T) {
	data, err := ConcatenateFields(sampleQueryFields())
	require.NoError(t, err)
	require.Equal(t, "100002024-05-01T10:00:00.000000EGPfalsefalse9876544455truefalsefalsefalsetruefalse12345677false2346MasterCardcardtrue", data)
}

func TestVerifyCallbackAcceptsValidSignature(t *testing.T) {
	fields := sampleQueryFields()
	data, err := ConcatenateFields(fields)
	require.NoError(t, err)
	signature := Sign(data, testSecret)

	require.True(t, VerifyCallback(fields, signature, testSecret))
	require.True(t, VerifyCallback(fields, strings.ToUpper(signature), testSecret))
}

func TestVerifyCallbackDetectsTampering(t *testing.T) {
	fields := sampleQueryFields()
	data, err := ConcatenateFields(fields)
	require.NoError(t, err)
	signature := Sign(data, testSecret)

	fields["success"] = "false"
	require.False(t, VerifyCallback(fields, signature, testSecret))
}

func TestVerifyCallbackRejectsMissingField(t *testing.T) {
	fields := sampleQueryFields()
	data, err := ConcatenateFields(fields)
	require.NoError(t, err)
	signature := Sign(data, testSecret)

	delete(fields, "source_data.pan")
	require.False(t, VerifyCallback(fields, signature, testSecret))

	_, err = ConcatenateFields(fields)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestVerifyCallbackRejectsWrongSecretOrEmptySignature(t *testing.T) {
	fields := sampleQueryFields()
	data, err := ConcatenateFields(fields)
	require.NoError(t, err)

	require.False(t, VerifyCallback(fields, Sign(data, "other"), testSecret))
	require.False(t, VerifyCallback(fields, "", testSecret))
	require.False(t, VerifyCallback(fields, Sign(data, testSecret), ""))
}
