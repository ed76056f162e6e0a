package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/billingsync/pkg/db/dbtest"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
)

func TestEmitAndResolveRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	userID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSubscriptionStatusChanged,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   "sub_1",
			Data: SubscriptionStatusChangedEvent{
				SubscriptionID: "sub_1",
				UserID:         userID,
				Status:         enums.SubscriptionStatusActive,
				Entitled:       true,
			},
		})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	reg, err := NewEventRegistry("billing-events")
	require.NoError(t, err)
	resolved, err := reg.Resolve(rows[0])
	require.NoError(t, err)
	assert.Equal(t, "billing-events", resolved.Descriptor.Topic)
	assert.Equal(t, 1, resolved.Envelope.Version)

	payload, ok := resolved.Payload.(*SubscriptionStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, userID, payload.UserID)
	assert.Nil(t, payload.PreviousStatus)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	assert.Error(t, err)
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventSubscriptionCreated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   "sub_1",
			Data:          SubscriptionCreatedEvent{SubscriptionID: "sub_1"},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	rows, err := repo.ListForAggregate(nil, enums.AggregateSubscription, "sub_1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryMarkTransitions(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)

	published := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventSubscriptionCreated, AggregateType: enums.AggregateSubscription, AggregateID: "sub_a", Payload: json.RawMessage(`{}`)}
	failed := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventSubscriptionCreated, AggregateType: enums.AggregateSubscription, AggregateID: "sub_b", Payload: json.RawMessage(`{}`)}
	terminal := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventSubscriptionCreated, AggregateType: enums.AggregateSubscription, AggregateID: "sub_c", Payload: json.RawMessage(`{}`)}
	for _, row := range []models.OutboxEvent{published, failed, terminal} {
		require.NoError(t, repo.Insert(db, row))
	}

	require.NoError(t, repo.MarkPublishedTx(db, published.ID))
	require.NoError(t, repo.MarkFailedTx(db, failed.ID, errors.New("transient")))
	require.NoError(t, repo.MarkTerminalTx(db, terminal.ID, errors.New("bad payload"), 3))

	all, err := repo.ListForAggregate(nil, enums.AggregateSubscription, "sub_c")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Parked(3))

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, failed.ID, rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "transient", *rows[0].LastError)
}

func TestResolveRejectsMalformedRows(t *testing.T) {
	reg, err := NewEventRegistry("billing-events")
	require.NoError(t, err)

	cases := map[string]models.OutboxEvent{
		"unknown type":       {EventType: "order_created", AggregateType: enums.AggregateSubscription, AggregateID: "sub_1", Payload: json.RawMessage(`{"data":{}}`)},
		"aggregate mismatch": {EventType: enums.EventSubscriptionCreated, AggregateType: "store", AggregateID: "sub_1", Payload: json.RawMessage(`{"data":{}}`)},
		"missing aggregate":  {EventType: enums.EventSubscriptionCreated, AggregateType: enums.AggregateSubscription, Payload: json.RawMessage(`{"data":{}}`)},
		"null data":          {EventType: enums.EventSubscriptionCreated, AggregateType: enums.AggregateSubscription, AggregateID: "sub_1", Payload: json.RawMessage(`{"data":null}`)},
		"bad envelope":       {EventType: enums.EventSubscriptionCreated, AggregateType: enums.AggregateSubscription, AggregateID: "sub_1", Payload: json.RawMessage(`nope`)},
	}
	for name, row := range cases {
		_, err := reg.Resolve(row)
		var nonRetry NonRetryableError
		assert.True(t, errors.As(err, &nonRetry), name)
	}

	_, err = NewEventRegistry(" ")
	assert.Error(t, err)
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     "order_created",
		AggregateType: enums.AggregateSubscription,
		AggregateID:   "sub_1",
	})
	assert.ErrorContains(t, err, "unknown event type")

	err = svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventSubscriptionCreated,
		AggregateType: enums.AggregateSubscription,
	})
	assert.ErrorContains(t, err, "aggregate id is required")
}

func TestSealAndOpenEnvelope(t *testing.T) {
	occurred := time.Date(2026, 9, 14, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	env, raw, err := sealEnvelope(0, occurred, SubscriptionCreatedEvent{SubscriptionID: "sub_9"})
	require.NoError(t, err)
	assert.Equal(t, currentEnvelopeVersion, env.Version)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.NotEmpty(t, env.EventID)

	opened, err := openEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, opened.EventID)
	assert.True(t, occurred.Equal(opened.OccurredAt))

	_, err = openEnvelope([]byte(`{"version":1,"data":null}`))
	assert.ErrorIs(t, err, errEmptyPayload)
}
