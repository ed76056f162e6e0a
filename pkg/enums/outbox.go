package enums

import "slices"

// OutboxAggregateType maps to aggregate_type_enum.
type OutboxAggregateType string

const AggregateSubscription OutboxAggregateType = "subscription"

var aggregateTypes = []OutboxAggregateType{AggregateSubscription}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(aggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum("aggregate type", aggregateTypes, value)
}

// OutboxEventType maps to event_type_enum. Adding a value needs a goose
// migration that extends the postgres enum.
type OutboxEventType string

const (
	EventSubscriptionCreated       OutboxEventType = "subscription_created"
	EventSubscriptionStatusChanged OutboxEventType = "subscription_status_changed"
)

var outboxEventTypes = []OutboxEventType{
	EventSubscriptionCreated,
	EventSubscriptionStatusChanged,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(outboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum("event type", outboxEventTypes, value)
}
