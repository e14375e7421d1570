package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/model"
	"marketdata/internal/model/enum"
	"marketdata/internal/schema"
)

func TestBatchCommandKeepsNilPlaceholders(t *testing.T) {
	cmd := schema.NewQueryBatch("tok-1", 1, []*string{model.String("AAPL"), nil, model.String("AAPL")})

	b, err := EncodeCommand(cmd)
	require.NoError(t, err)

	got, err := DecodeCommand(b)
	require.NoError(t, err)
	assert.Equal(t, enum.OperationQueryBatch, got.Op)
	require.Len(t, got.Symbols, 3)
	assert.Nil(t, got.Symbols[1])
	assert.Equal(t, "AAPL", *got.Symbols[2])
}

func TestUpdateCommandKeepsAbsentFieldsNil(t *testing.T) {
	coupon := model.NewDate(2026, 1, 15)
	cmd := schema.NewUpdate("tok-2", 1, model.Fields{
		Symbol:          "AAPL",
		Source:          "NYSE",
		LastTradedPrice: model.Float(150),
		LastCouponDate:  &coupon,
	})

	b, err := EncodeCommand(cmd)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "bidPrice")

	got, err := DecodeCommand(b)
	require.NoError(t, err)
	require.NotNil(t, got.Fields)
	assert.Nil(t, got.Fields.BidPrice)
	assert.Equal(t, 150.0, *got.Fields.LastTradedPrice)
	assert.Equal(t, "2026-01-15", got.Fields.LastCouponDate.String())
	assert.Equal(t, "AAPL", got.Key())
}

func TestResponseNotFoundHasNoRecord(t *testing.T) {
	resp := schema.Response{Header: schema.NewHeader("tok-3", enum.OperationQuerySpecific, 1)}

	b, err := EncodeResponse(resp)
	require.NoError(t, err)

	got, err := DecodeResponse(b)
	require.NoError(t, err)
	assert.Nil(t, got.Record)
	assert.Nil(t, got.Status)
	assert.Equal(t, "tok-3", got.Token)
}

func TestDecodeRejectsGarbageAndMissingToken(t *testing.T) {
	_, err := DecodeCommand([]byte("{not json"))
	assert.Error(t, err)

	_, err = DecodeCommand([]byte(`{"op":1}`))
	assert.Error(t, err)

	_, err = DecodeResponse([]byte(`{"op":1}`))
	assert.Error(t, err)
}

func TestDecodeKeepsUnknownOperation(t *testing.T) {
	got, err := DecodeCommand([]byte(`{"token":"t","op":42}`))
	require.NoError(t, err)
	assert.False(t, got.Op.IsAvailable())
}
