package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/billingsync/pkg/redis"
)

var errMissingEventID = errors.New("event id is required")

// ClaimResult is what a delivery found when it tried to claim an event id.
type ClaimResult int

const (
	// Claimed means the caller owns processing and must Complete or Release.
	Claimed ClaimResult = iota
	// InFlight means another delivery is still processing the event.
	InFlight
	// Done means the event was already applied.
	Done
)

func (r ClaimResult) String() string {
	switch r {
	case Claimed:
		return "claimed"
	case InFlight:
		return "in_flight"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

const (
	markInFlight = "in_flight"
	markDone     = "done"

	defaultInFlightTTL = 2 * time.Minute
)

// IdempotencyGuard tracks provider event ids in redis. A delivery first
// claims the id with a short-lived in-flight mark, and only a successful
// handler turns it into a done mark that lasts ttl. Mark values are
// "<state>:<RFC3339 time>". A zero ttl keeps done marks forever.
type IdempotencyGuard struct {
	store    redis.IdempotencyStore
	ttl      time.Duration
	inFlight time.Duration
	scope    string
	now      func() time.Time
}

// NewIdempotencyGuard builds a guard. inFlight bounds how long a crashed
// delivery blocks redeliveries and must cover the processing timeout; zero
// selects two minutes.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl, inFlight time.Duration, scope string) (*IdempotencyGuard, error) {
	scope = strings.TrimSpace(scope)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0 || inFlight < 0:
		return nil, errors.New("ttl must be non-negative")
	case scope == "":
		return nil, errors.New("scope is required")
	}
	if inFlight == 0 {
		inFlight = defaultInFlightTTL
	}
	return &IdempotencyGuard{store: store, ttl: ttl, inFlight: inFlight, scope: scope, now: time.Now}, nil
}

// Claim takes the in-flight mark for eventID, or reports who holds it.
func (g *IdempotencyGuard) Claim(ctx context.Context, eventID string) (ClaimResult, error) {
	key, err := g.key(eventID)
	if err != nil {
		return InFlight, err
	}
	taken, err := g.store.SetNX(ctx, key, g.mark(markInFlight), g.inFlight)
	if err != nil {
		return InFlight, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if taken {
		return Claimed, nil
	}

	value, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		// The other delivery released or expired between the two calls.
		// Reporting in-flight makes the provider retry.
		return InFlight, nil
	case err != nil:
		return InFlight, fmt.Errorf("read mark for event %s: %w", eventID, err)
	case strings.HasPrefix(value, markDone+":"):
		return Done, nil
	default:
		return InFlight, nil
	}
}

// Complete records that eventID was applied.
func (g *IdempotencyGuard) Complete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, key, g.mark(markDone), g.ttl); err != nil {
		return fmt.Errorf("complete event %s: %w", eventID, err)
	}
	return nil
}

// Release drops the mark so the provider's next retry is processed.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}

func (g *IdempotencyGuard) mark(state string) string {
	return state + ":" + g.now().UTC().Format(time.RFC3339)
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errMissingEventID
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
