package wkb

import (
	"encoding/hex"
	"strings"

	"github.com/tempora-db/tempora/pkg/temporal"
)

// HexWKB is the ASCII rendering of WKB: two uppercase hex digits per byte.

// MarshalTemporalHex encodes a temporal value as HexWKB.
func MarshalTemporalHex(tm temporal.Temporal, opts Options) (string, error) {
	b, err := MarshalTemporal(tm, opts)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// UnmarshalTemporalHex decodes a HexWKB temporal value.
func UnmarshalTemporalHex(s string) (temporal.Temporal, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, codecErr(0, "invalid hex input: %v", err)
	}
	return UnmarshalTemporal(b)
}
