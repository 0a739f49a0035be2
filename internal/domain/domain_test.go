package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackMetadata_Amount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		items   CallbackMetadata
		want    int64
		wantErr error
	}{
		{"whole number", CallbackMetadata{{Name: MetadataAmount, Value: "1150"}}, 1150, nil},
		{"trailing zero decimals", CallbackMetadata{{Name: MetadataAmount, Value: "1150.00"}}, 1150, nil},
		{"fractional", CallbackMetadata{{Name: MetadataAmount, Value: "1150.5"}}, 0, ErrMetadataFieldInvalid},
		{"zero", CallbackMetadata{{Name: MetadataAmount, Value: "0"}}, 0, ErrMetadataFieldInvalid},
		{"negative", CallbackMetadata{{Name: MetadataAmount, Value: "-10"}}, 0, ErrMetadataFieldInvalid},
		{"not a number", CallbackMetadata{{Name: MetadataAmount, Value: "ten"}}, 0, ErrMetadataFieldInvalid},
		{"empty value", CallbackMetadata{{Name: MetadataAmount, Value: ""}}, 0, ErrMetadataFieldMissing},
		{"absent", CallbackMetadata{{Name: MetadataReceiptNumber, Value: "NLJ7RT61SV"}}, 0, ErrMetadataFieldMissing},
		{"largest int64", CallbackMetadata{{Name: MetadataAmount, Value: "9223372036854775807"}}, 9223372036854775807, nil},
		{"beyond int64", CallbackMetadata{{Name: MetadataAmount, Value: "9223372036854775808"}}, 0, ErrMetadataFieldInvalid},
		{"wraps to a valid amount", CallbackMetadata{{Name: MetadataAmount, Value: "18446744073709552766"}}, 0, ErrMetadataFieldInvalid},
		{"first match wins", CallbackMetadata{{Name: MetadataAmount, Value: "5"}, {Name: MetadataAmount, Value: "6"}}, 5, nil},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := tc.items.Amount()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCallbackMetadata_ReceiptNumber(t *testing.T) {
	t.Parallel()

	md := CallbackMetadata{{Name: MetadataReceiptNumber, Value: "NLJ7RT61SV"}}
	receipt, err := md.ReceiptNumber()
	require.NoError(t, err)
	assert.Equal(t, "NLJ7RT61SV", receipt)

	_, err = CallbackMetadata{}.ReceiptNumber()
	assert.ErrorIs(t, err, ErrMetadataFieldMissing)
}

func TestDeliveryStatus_Next(t *testing.T) {
	t.Parallel()

	next, ok := DeliveryStatusPending.Next()
	assert.True(t, ok)
	assert.Equal(t, DeliveryStatusDispatched, next)

	next, ok = DeliveryStatusDispatched.Next()
	assert.True(t, ok)
	assert.Equal(t, DeliveryStatusDelivered, next)

	_, ok = DeliveryStatusDelivered.Next()
	assert.False(t, ok)
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.True(t, PaymentStatusSuccess.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
}

func TestCart_Subtotal(t *testing.T) {
	t.Parallel()

	cart := &Cart{Lines: []CartLine{
		{ID: "line-1", Quantity: 3, Product: Product{Price: 200}},
		{ID: "line-2", Quantity: 20, Product: Product{Price: 20}},
	}}
	assert.Equal(t, int64(1000), cart.Subtotal())
	assert.False(t, cart.IsEmpty())
	assert.Equal(t, []string{"line-1", "line-2"}, cart.LineIDs())

	var none *Cart
	assert.True(t, none.IsEmpty())
	assert.Nil(t, none.LineIDs())
	assert.True(t, (&Cart{}).IsEmpty())
}

func TestSTKCallback_Succeeded(t *testing.T) {
	t.Parallel()

	assert.True(t, STKCallback{ResultCode: 0}.Succeeded())
	assert.False(t, STKCallback{ResultCode: 1032}.Succeeded())
}
