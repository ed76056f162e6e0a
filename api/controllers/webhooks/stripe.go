package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billingsync/api/responses"
	stripewebhook "github.com/angelmondragon/billingsync/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
	"github.com/angelmondragon/billingsync/pkg/metrics"
)

const (
	signatureHeader       = "Stripe-Signature"
	maxPayloadBytes       = 1 << 20
	defaultProcessTimeout = 30 * time.Second
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (bool, error)
}

type stripeEventVerifier interface {
	Verify(payload []byte, header string) (stripe.Event, error)
}

type stripeWebhookGuard interface {
	Claim(ctx context.Context, eventID string) (stripewebhook.ClaimResult, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

type webhookRecorder interface {
	Record(eventType, outcome string, elapsed time.Duration)
}

// StripeWebhookParams wires the delivery boundary. Guard and Metrics are
// optional.
type StripeWebhookParams struct {
	Service           StripeWebhookService
	Verifier          stripeEventVerifier
	Guard             stripeWebhookGuard
	Metrics           webhookRecorder
	ProcessingTimeout time.Duration
	Logger            *logger.Logger
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// StripeWebhook authenticates and applies one provider delivery. Every failure
// is answered with 400 so the provider redelivers.
func StripeWebhook(params StripeWebhookParams) http.HandlerFunc {
	logg := params.Logger
	timeout := params.ProcessingTimeout
	if timeout <= 0 {
		timeout = defaultProcessTimeout
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fail := func(ctx context.Context, err error) {
			responses.WriteErrorStatus(ctx, logg, w, http.StatusBadRequest, err)
		}

		if params.Service == nil || params.Verifier == nil {
			fail(ctx, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				record(params.Metrics, "", metrics.OutcomeRejected, 0)
				responses.WriteErrorStatus(ctx, logg, w, http.StatusRequestEntityTooLarge,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("payload exceeds %d bytes", maxPayloadBytes)))
				return
			}
			fail(ctx, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		event, err := params.Verifier.Verify(payload, r.Header.Get(signatureHeader))
		if err != nil {
			record(params.Metrics, "", metrics.OutcomeRejected, 0)
			fail(ctx, err)
			return
		}
		if logg != nil {
			ctx = logg.WithEvent(ctx, event.ID, string(event.Type))
		}

		// Processing outlives the request so a dropped connection cannot
		// abandon a half-applied event.
		procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if params.Guard != nil {
			claim, err := params.Guard.Claim(procCtx, event.ID)
			if err != nil {
				record(params.Metrics, string(event.Type), metrics.OutcomeFailed, 0)
				fail(ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			switch claim {
			case stripewebhook.Done:
				if logg != nil {
					logg.Info(ctx, "stripe event already processed")
				}
				record(params.Metrics, string(event.Type), metrics.OutcomeDuplicate, 0)
				responses.WriteSuccess(w, receivedResponse{Received: true})
				return
			case stripewebhook.InFlight:
				// Only a finished attempt may acknowledge the event; the
				// provider retries this one later.
				record(params.Metrics, string(event.Type), metrics.OutcomeInFlight, 0)
				fail(ctx, pkgerrors.New(pkgerrors.CodeConflict, "event is still being processed"))
				return
			}
		}

		start := time.Now()
		handled, err := params.Service.HandleEvent(procCtx, &event)
		elapsed := time.Since(start)
		if err != nil {
			release(procCtx, params.Guard, logg, event.ID)
			record(params.Metrics, string(event.Type), metrics.OutcomeFailed, elapsed)
			fail(ctx, err)
			return
		}

		outcome := metrics.OutcomeProcessed
		if handled {
			if params.Guard != nil {
				if err := params.Guard.Complete(procCtx, event.ID); err != nil && logg != nil {
					logg.Error(ctx, "complete idempotency mark", err)
				}
			}
			if logg != nil {
				logg.Info(ctx, "stripe event processed")
			}
		} else {
			outcome = metrics.OutcomeIgnored
			release(procCtx, params.Guard, logg, event.ID)
		}
		record(params.Metrics, string(event.Type), outcome, elapsed)
		responses.WriteSuccess(w, receivedResponse{Received: true})
	}
}

func release(ctx context.Context, guard stripeWebhookGuard, logg *logger.Logger, eventID string) {
	if guard == nil {
		return
	}
	if err := guard.Release(ctx, eventID); err != nil {
		logg.Error(ctx, "release idempotency mark", err)
	}
}

func record(rec webhookRecorder, eventType, outcome string, elapsed time.Duration) {
	if rec == nil {
		return
	}
	rec.Record(eventType, outcome, elapsed)
}
