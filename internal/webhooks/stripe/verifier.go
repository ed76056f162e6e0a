package stripewebhook

import (
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
)

const defaultTolerance = 5 * time.Minute

// Verifier authenticates raw webhook bodies against the signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	return &Verifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

// Verify checks header against the exact bytes of payload and returns the
// decoded event envelope.
func (v *Verifier) Verify(payload []byte, header string) (stripe.Event, error) {
	if strings.TrimSpace(header) == "" || v == nil || v.secret == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeAuthentication, "missing stripe signature or webhook secret")
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned):
			return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeAuthentication, err, "stripe signature missing")
		case errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeSignatureMismatch, err, "verify stripe signature")
		default:
			return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "decode stripe event")
		}
	}
	if event.ID == "" || event.Type == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeIncompleteData, "stripe event missing id or type")
	}
	return event, nil
}
