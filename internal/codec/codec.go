// Package codec converts credential bundles to and from their stored form.
//
// Every value is base64-encoded (standard alphabet, padded). The encoding is a
// transport-safe representation for embedding bundles in storage documents; it
// is NOT encryption and offers no confidentiality at rest.
package codec

import (
	"encoding/base64"
	"fmt"
)

var encoding = base64.StdEncoding.Strict()

// CodecError reports a stored credential value that could not be decoded.
type CodecError struct {
	Field string
	Err   error
}

func (e CodecError) Error() string {
	return fmt.Sprintf("malformed encoded credential field %q: %v", e.Field, e.Err)
}

func (e CodecError) Unwrap() error {
	return e.Err
}

// Encode returns a new map with every value of bundle encoded.
// A nil bundle encodes to an empty map.
func Encode(bundle map[string]string) map[string]string {
	out := make(map[string]string, len(bundle))
	for field, value := range bundle {
		out[field] = EncodeValue(value)
	}
	return out
}

// Decode is the exact inverse of Encode, byte for byte. It fails on the first
// value that is not valid padded base64 and never returns a partially decoded
// map.
func Decode(encoded map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(encoded))
	for field, value := range encoded {
		decoded, err := DecodeValue(value)
		if err != nil {
			return nil, CodecError{Field: field, Err: err}
		}
		out[field] = decoded
	}
	return out, nil
}

// EncodeValue encodes a single value.
func EncodeValue(value string) string {
	return encoding.EncodeToString([]byte(value))
}

// DecodeValue decodes a single value produced by EncodeValue.
func DecodeValue(value string) (string, error) {
	raw, err := encoding.DecodeString(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
