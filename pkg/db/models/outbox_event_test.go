package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutboxEventParked(t *testing.T) {
	published := time.Now()
	assert.True(t, OutboxEvent{AttemptCount: 5}.Parked(5))
	assert.False(t, OutboxEvent{AttemptCount: 4}.Parked(5))
	assert.False(t, OutboxEvent{AttemptCount: 9, PublishedAt: &published}.Parked(5))
	assert.False(t, OutboxEvent{AttemptCount: 9}.Parked(0))
}
