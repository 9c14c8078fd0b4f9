// Package common defines the sentinel error kinds shared by every layer of
// the synchronizer. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Configuration errors (missing or malformed settings).
	ErrConfig = errors.New("configuration error")

	// Remote API errors.
	ErrNetwork = errors.New("network error")
	ErrDecode  = errors.New("decode error")

	// Store errors (connection or statement failure).
	ErrStore = errors.New("store error")

	// Unexpected response shape from the source API.
	ErrProtocol = errors.New("protocol error")
)

// ProtocolError carries the response that violated the API contract.
type ProtocolError struct {
	Msg    string
	Result any
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

// Unwrap lets errors.Is(err, ErrProtocol) match.
func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}
