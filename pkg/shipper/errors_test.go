package shipper_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
)

func TestError_Error(t *testing.T) {
	err := shipper.InvalidData("No Parcel matches the given query.")
	assert.Equal(t, "No Parcel matches the given query.", err.Error())
	assert.Equal(t, shipper.KindInvalidData, err.Kind)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.InvalidData("Error contacting Sendcloud API: network timeout").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Error contacting Sendcloud API: network timeout", err.Error())
}

func TestError_Is(t *testing.T) {
	err := shipper.InvalidData("boom").WithProvider("sendcloud")
	assert.True(t, errors.Is(err, shipper.ErrInvalidData))
	assert.True(t, shipper.IsInvalidData(fmt.Errorf("creating parcel: %w", err)))
	assert.False(t, shipper.IsInvalidData(errors.New("plain")))
	assert.False(t, errors.Is(err, shipper.ErrProviderNotFound))
}

func TestMessage(t *testing.T) {
	wrapped := fmt.Errorf("cancelling: %w", shipper.InvalidData("boom"))
	assert.Equal(t, "boom", shipper.Message(wrapped))
	assert.Equal(t, "plain", shipper.Message(errors.New("plain")))
}
