package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThriveCartEventAliases(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   Event
	}{
		{
			name: "form post",
			fields: map[string]string{
				"event":             "order.success",
				"order_id":          "1001",
				"customer[email]":   "Buyer@Example.com",
				"sku":               "cfp",
				"thrivecart_secret": "s3cret",
			},
			want: Event{Provider: "thrivecart", Type: "order.success", OrderID: "1001", Email: "buyer@example.com", Sku: "cfp"},
		},
		{
			name: "aliases",
			fields: map[string]string{
				"event":           "order.subscription_payment",
				"subscription_id": "sub_9",
				"order_id":        "1001",
				"customer_email":  "a@example.com",
				"product_sku":     "premium",
			},
			want: Event{Provider: "thrivecart", Type: "order.subscription_payment", OrderID: "sub_9", Email: "a@example.com", Sku: "premium"},
		},
		{
			name: "passthrough sku and invoice",
			fields: map[string]string{
				"event":           "order.refund",
				"invoice_id":      "inv_1",
				"email":           "b@example.com",
				"passthrough_sku": "module-0-cfr",
			},
			want: Event{Provider: "thrivecart", Type: "order.refund", OrderID: "inv_1", Email: "b@example.com", Sku: "module-0-cfr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ThriveCartEvent(tt.fields)
			assert.NotContains(t, got.PayloadJSON, "s3cret")
			got.PayloadJSON = ""
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlattenJSON(t *testing.T) {
	body := []byte(`{"event":"order.success","order_id":1001,"customer":{"email":"a@example.com","name":"A"},"items":[{"sku":"cfp"}],"test":true,"coupon":null}`)

	fields, err := FlattenJSON(body)
	require.NoError(t, err)
	assert.Equal(t, "order.success", fields["event"])
	assert.Equal(t, "1001", fields["order_id"])
	assert.Equal(t, "a@example.com", fields["customer[email]"])
	assert.Equal(t, "cfp", fields["items[0][sku]"])
	assert.Equal(t, "true", fields["test"])
	assert.Equal(t, "", fields["coupon"])

	_, err = FlattenJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestVerifySharedSecret(t *testing.T) {
	assert.NoError(t, VerifySharedSecret("top-secret", " top-secret "))
	assert.ErrorIs(t, VerifySharedSecret("", "anything"), ErrSecretNotConfigured)
	assert.ErrorIs(t, VerifySharedSecret("top-secret", ""), ErrInvalidSecret)
	assert.ErrorIs(t, VerifySharedSecret("top-secret", "top-secreT"), ErrInvalidSecret)
}
