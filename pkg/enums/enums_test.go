package enums

import "testing"

func TestParseSubscriptionStatusCoversProviderStates(t *testing.T) {
	for _, raw := range []string{"trialing", "active", "past_due", "canceled", "incomplete", "incomplete_expired", "unpaid", "paused"} {
		if _, err := ParseSubscriptionStatus(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := ParseSubscriptionStatus("archived"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestSubscriptionStatusPredicates(t *testing.T) {
	if !SubscriptionStatusTrialing.IsEntitled() || SubscriptionStatusPastDue.IsEntitled() {
		t.Fatal("unexpected entitlement result")
	}
	if !SubscriptionStatusCanceled.IsTerminal() || SubscriptionStatusUnpaid.IsTerminal() {
		t.Fatal("unexpected terminal result")
	}
}

func TestParsePriceEnums(t *testing.T) {
	if got, err := ParsePriceType("recurring"); err != nil || got != PriceTypeRecurring {
		t.Fatalf("unexpected price type %q err=%v", got, err)
	}
	if _, err := ParsePriceType("tiered"); err == nil {
		t.Fatal("expected invalid price type")
	}
	if got, err := ParsePriceInterval("year"); err != nil || got != PriceIntervalYear {
		t.Fatalf("unexpected interval %q err=%v", got, err)
	}
	if _, err := ParsePriceInterval("fortnight"); err == nil {
		t.Fatal("expected invalid interval")
	}
}

func TestParseOutboxEnums(t *testing.T) {
	if got, err := ParseOutboxEventType("subscription_status_changed"); err != nil || got != EventSubscriptionStatusChanged {
		t.Fatalf("unexpected event type %q err=%v", got, err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
	if got, err := ParseOutboxAggregateType("subscription"); err != nil || !got.IsValid() {
		t.Fatalf("unexpected aggregate type %q err=%v", got, err)
	}
	if _, err := ParseOutboxAggregateType("Subscription"); err == nil {
		t.Fatal("parsing is case sensitive")
	}
}
