package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
)

// EventDescriptor says where an event type is published and which payload
// struct its envelope data decodes into.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   PayloadEnvelope
	Payload    any
}

// EventRegistry resolves outbox rows for the publisher.
type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row the publisher should park instead of retry.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

// subscriptionEvents are every event the reconciler emits. All of them go to
// the billing topic.
var subscriptionEvents = map[enums.OutboxEventType]func() any{
	enums.EventSubscriptionCreated:       func() any { return &SubscriptionCreatedEvent{} },
	enums.EventSubscriptionStatusChanged: func() any { return &SubscriptionStatusChangedEvent{} },
}

func NewEventRegistry(billingTopic string) (*EventRegistry, error) {
	topic := strings.TrimSpace(billingTopic)
	if topic == "" {
		return nil, errors.New("billing topic is required")
	}
	byType := make(map[enums.OutboxEventType]EventDescriptor, len(subscriptionEvents))
	for eventType, newPayload := range subscriptionEvents {
		byType[eventType] = EventDescriptor{
			EventType:     eventType,
			AggregateType: enums.AggregateSubscription,
			Topic:         topic,
			newPayload:    newPayload,
		}
	}
	return &EventRegistry{byType: byType}, nil
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure is non-retryable: a malformed row never heals.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	reject := func(format string, args ...any) (*ResolvedEvent, error) {
		return nil, NewNonRetryableError(fmt.Errorf(format, args...))
	}

	desc, ok := r.byType[row.EventType]
	switch {
	case !ok:
		return reject("unsupported event type %s", row.EventType)
	case row.AggregateType != desc.AggregateType:
		return reject("aggregate mismatch: expected %s got %s", desc.AggregateType, row.AggregateType)
	case strings.TrimSpace(row.AggregateID) == "":
		return reject("missing aggregate_id")
	}

	envelope, err := openEnvelope(row.Payload)
	if err != nil {
		return reject("%s: %w", row.EventType, err)
	}
	payload := desc.newPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return reject("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
