package subscriptions

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
)

// BuildSubscription validates the provider snapshot and maps it onto the full
// replacement row owned by userID.
func BuildSubscription(snapshot *ProviderSubscription, userID uuid.UUID) (*models.Subscription, error) {
	if snapshot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "provider subscription is nil")
	}
	if strings.TrimSpace(snapshot.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "provider subscription id missing")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "subscription owner missing")
	}
	status, err := enums.ParseSubscriptionStatus(snapshot.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "provider subscription status")
	}
	if len(snapshot.Items) == 0 || strings.TrimSpace(snapshot.Items[0].PriceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "provider subscription has no priced item")
	}
	if snapshot.Created <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "provider subscription created timestamp missing")
	}

	start, end, err := EffectiveWindow(snapshot, status)
	if err != nil {
		return nil, err
	}

	metadata, err := encodeMetadata(snapshot.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "encode subscription metadata")
	}

	item := snapshot.Items[0]
	priceID := item.PriceID
	quantity := int64(1)
	if item.Quantity != nil && *item.Quantity > 0 {
		quantity = *item.Quantity
	}

	return &models.Subscription{
		ID:                 snapshot.ID,
		UserID:             userID,
		Status:             status,
		PriceID:            &priceID,
		Quantity:           quantity,
		CancelAtPeriodEnd:  snapshot.CancelAtPeriodEnd,
		CancelAt:           toTimePtr(snapshot.CancelAt),
		CanceledAt:         toTimePtr(snapshot.CanceledAt),
		EndedAt:            toTimePtr(snapshot.EndedAt),
		CurrentPeriodStart: toTime(start),
		CurrentPeriodEnd:   toTime(end),
		TrialStart:         toTimePtr(snapshot.TrialStart),
		TrialEnd:           toTimePtr(snapshot.TrialEnd),
		Created:            toTime(snapshot.Created),
		Metadata:           metadata,
	}, nil
}

// EffectiveWindow picks the billing window: the trial window while trialing
// with both trial bounds set, otherwise the first item's period.
func EffectiveWindow(snapshot *ProviderSubscription, status enums.SubscriptionStatus) (int64, int64, error) {
	var start, end int64
	switch {
	case status == enums.SubscriptionStatusTrialing && isSet(snapshot.TrialStart) && isSet(snapshot.TrialEnd):
		start, end = *snapshot.TrialStart, *snapshot.TrialEnd
	case len(snapshot.Items) > 0 && isSet(snapshot.Items[0].CurrentPeriodStart) && isSet(snapshot.Items[0].CurrentPeriodEnd):
		start, end = *snapshot.Items[0].CurrentPeriodStart, *snapshot.Items[0].CurrentPeriodEnd
	default:
		return 0, 0, pkgerrors.New(pkgerrors.CodeIncompleteData, "missing required period dates").
			WithDetails(map[string]any{"subscription_id": snapshot.ID, "status": string(status)})
	}
	if start > end {
		return 0, 0, pkgerrors.New(pkgerrors.CodeIncompleteData, "period start is after period end").
			WithDetails(map[string]any{"subscription_id": snapshot.ID, "start": start, "end": end})
	}
	return start, end, nil
}

func encodeMetadata(metadata map[string]string) (json.RawMessage, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func isSet(ts *int64) bool {
	return ts != nil && *ts > 0
}

func toTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

func toTimePtr(ts *int64) *time.Time {
	if !isSet(ts) {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}
