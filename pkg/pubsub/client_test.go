package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/billingsync/pkg/config"
)

func TestTopicName(t *testing.T) {
	assert.Equal(t, "projects/proj/topics/billing-events", TopicName("proj", "billing-events"))
	assert.Equal(t, "projects/other/topics/billing-events", TopicName("proj", "projects/other/topics/billing-events"))
	assert.Empty(t, TopicName("proj", "  "))
	assert.Empty(t, TopicName("", "billing-events"))
}

func TestClientOptionsPrecedence(t *testing.T) {
	assert.Nil(t, clientOptions(config.GCPConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: " "}, config.PubSubConfig{BillingTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientHelpers(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, c.Close())
}
