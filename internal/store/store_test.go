package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDParamRoundTrip(t *testing.T) {
	const id = "b2a3f6c1-9d0e-4f1a-8f7e-0123456789ab"
	v, err := uuidParam(id)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, id, uuidString(v))
}

func TestUUIDParamRejectsGarbage(t *testing.T) {
	_, err := uuidParam("not-a-uuid")
	require.Error(t, err)
}

func TestInvalidIDsRejectedBeforeQuerying(t *testing.T) {
	// a nil pool is safe here: the id check runs first
	s := New(nil)
	ctx := context.Background()

	_, err := s.GetConfiguration(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.FindUnpaidOrder(ctx, "user-1", "nope")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.CreateOrder(ctx, CreateOrderParams{ConfigurationID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.MarkOrderPaid(ctx, "nope", SettlementAddresses{})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.GetAddress(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestTextParam(t *testing.T) {
	assert.False(t, textParam("").Valid)
	v := textParam("CA")
	assert.True(t, v.Valid)
	assert.Equal(t, "CA", v.String)
	assert.Equal(t, "CA", textValue(v))
	assert.Equal(t, "", textValue(textParam("")))
}
