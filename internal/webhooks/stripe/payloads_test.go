package stripewebhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
)

func TestExpandableIDAcceptsStringOrObject(t *testing.T) {
	var out struct {
		A expandableID `json:"a"`
		B expandableID `json:"b"`
		C expandableID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"cus_1","b":{"id":"cus_2","object":"customer"},"c":null}`), &out))
	assert.Equal(t, "cus_1", out.A.String())
	assert.Equal(t, "cus_2", out.B.String())
	assert.Empty(t, out.C.String())
}

func TestDecodePricePayload(t *testing.T) {
	raw := json.RawMessage(`{
		"id":"price_1","product":{"id":"prod_1"},"active":true,"currency":"usd",
		"nickname":"Monthly","type":"recurring","unit_amount":1500,
		"recurring":{"interval":"month","interval_count":1,"trial_period_days":14}
	}`)
	var payload pricePayload
	require.NoError(t, decodePayload(raw, &payload, "price"))

	in := payload.input()
	assert.Equal(t, "prod_1", in.ProductID)
	require.NotNil(t, in.Recurring)
	assert.Equal(t, "month", in.Recurring.Interval)
	require.NotNil(t, in.Recurring.TrialPeriodDays)
	assert.EqualValues(t, 14, *in.Recurring.TrialPeriodDays)
}

func TestDecodePayloadFailsClosed(t *testing.T) {
	cases := map[string]struct {
		raw  string
		dest any
	}{
		"empty":                 {raw: ``, dest: &productPayload{}},
		"not json":              {raw: `{`, dest: &productPayload{}},
		"product without name":  {raw: `{"id":"prod_1"}`, dest: &productPayload{}},
		"recurring w/o cadence": {raw: `{"id":"price_1","product":"prod_1","currency":"usd","type":"recurring"}`, dest: &pricePayload{}},
		"unknown price type":    {raw: `{"id":"price_1","product":"prod_1","currency":"usd","type":"metered"}`, dest: &pricePayload{}},
		"subscription no cus":   {raw: `{"id":"sub_1"}`, dest: &subscriptionPayload{}},
		"checkout missing sub":  {raw: `{"id":"cs_1","mode":"subscription","customer":"cus_1"}`, dest: &checkoutSessionPayload{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := decodePayload(json.RawMessage(tc.raw), tc.dest, "test")
			require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeIncompleteData), "got %v", err)
		})
	}
}

func TestCheckoutPaymentModeNeedsNoSubscription(t *testing.T) {
	var payload checkoutSessionPayload
	require.NoError(t, decodePayload(json.RawMessage(`{"id":"cs_1","mode":"payment"}`), &payload, "checkout session"))
}

func TestInvoiceSubscriptionID(t *testing.T) {
	var legacy invoicePayload
	require.NoError(t, json.Unmarshal([]byte(`{"id":"in_1","customer":"cus_1","subscription":"sub_1"}`), &legacy))
	assert.Equal(t, "sub_1", legacy.subscriptionID())

	var nested invoicePayload
	require.NoError(t, json.Unmarshal([]byte(`{"id":"in_1","customer":"cus_1","parent":{"subscription_details":{"subscription":"sub_2"}}}`), &nested))
	assert.Equal(t, "sub_2", nested.subscriptionID())

	var none invoicePayload
	require.NoError(t, json.Unmarshal([]byte(`{"id":"in_1","customer":"cus_1"}`), &none))
	assert.Empty(t, none.subscriptionID())
}
