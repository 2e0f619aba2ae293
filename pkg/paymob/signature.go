package paymob

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is returned when a callback lacks one of the signed attributes.
var ErrMissingField = errors.New("callback field missing")

// ConcatenateFields joins the signed attributes in gateway order.
func ConcatenateFields(fields FieldExtractor) (string, error) {
	var builder strings.Builder
	for _, name := range CallbackFields {
		value, ok := fields.Get(name)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingField, name)
		}
		builder.WriteString(value)
	}
	return builder.String(), nil
}

// Sign returns the lowercase hex HMAC-SHA512 of data keyed with secret.
func Sign(data, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback reports whether signature authenticates the callback fields.
// Hex comparison is case-insensitive.
func VerifyCallback(fields FieldExtractor, signature, secret string) bool {
	if secret == "" || strings.TrimSpace(signature) == "" {
		return false
	}

	data, err := ConcatenateFields(fields)
	if err != nil {
		return false
	}

	expected := Sign(data, secret)
	received := strings.ToLower(strings.TrimSpace(signature))
	return hmac.Equal([]byte(expected), []byte(received))
}
