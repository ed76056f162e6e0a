package stripe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billingsync/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnv(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Env: "test"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{Env: "live", APIKey: "sk_test_123"}, nil)
	assert.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{Env: "staging", APIKey: "sk_test_123"}, nil)
	assert.ErrorIs(t, err, errInvalidStripeEnv)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{APIKey: "rk_test_abc", WebhookSecret: " whsec_1 "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec_1", client.SigningSecret())
	assert.Equal(t, 5*time.Minute, client.WebhookTolerance())
	assert.NotNil(t, client.API())
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	assert.Nil(t, client.API())
	assert.Empty(t, client.SigningSecret())
	assert.Equal(t, defaultWebhookTolerance, client.WebhookTolerance())
}

func TestIsResourceMissing(t *testing.T) {
	missing := &stripe.Error{Code: stripe.ErrorCodeResourceMissing}
	assert.True(t, IsResourceMissing(fmt.Errorf("fetch: %w", missing)))
	assert.True(t, IsResourceMissing(&stripe.Error{HTTPStatusCode: 404}))
	assert.False(t, IsResourceMissing(&stripe.Error{HTTPStatusCode: 500}))
	assert.False(t, IsResourceMissing(errors.New("timeout")))
}
