package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolError_IsErrProtocol(t *testing.T) {
	var err error = &ProtocolError{Msg: "Unexpected result when getting flow definitions", Result: map[string]any{}}

	wrapped := fmt.Errorf("sync flows: %w", err)

	assert.True(t, errors.Is(wrapped, ErrProtocol))
	assert.False(t, errors.Is(wrapped, ErrStore))
	assert.Equal(t, "Unexpected result when getting flow definitions", err.Error())

	var pe *ProtocolError
	assert.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, map[string]any{}, pe.Result)
}

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{ErrConfig, ErrNetwork, ErrDecode, ErrStore, ErrProtocol}
	for i := range all {
		for j := range all {
			if i != j && errors.Is(all[i], all[j]) {
				t.Fatalf("%v must not match %v", all[i], all[j])
			}
		}
	}
}
