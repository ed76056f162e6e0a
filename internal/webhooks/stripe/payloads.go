package stripewebhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/billingsync/internal/catalog"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
)

var payloadValidator = validator.New()

// expandableID accepts either a bare id string or an expanded object carrying
// an id field.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = expandableID(strings.TrimSpace(id))
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expandable reference: %w", err)
	}
	*e = expandableID(strings.TrimSpace(obj.ID))
	return nil
}

func (e expandableID) String() string {
	return string(e)
}

type productPayload struct {
	ID          string            `json:"id" validate:"required"`
	Active      bool              `json:"active"`
	Name        string            `json:"name" validate:"required"`
	Description *string           `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

func (p productPayload) input() catalog.ProductInput {
	return catalog.ProductInput{
		ID:          p.ID,
		Active:      p.Active,
		Name:        p.Name,
		Description: p.Description,
		Images:      p.Images,
		Metadata:    p.Metadata,
	}
}

type recurringPayload struct {
	Interval        string `json:"interval" validate:"required,oneof=day week month year"`
	IntervalCount   int64  `json:"interval_count" validate:"gte=1"`
	TrialPeriodDays *int64 `json:"trial_period_days"`
}

type pricePayload struct {
	ID                string            `json:"id" validate:"required"`
	Product           expandableID      `json:"product" validate:"required"`
	Active            bool              `json:"active"`
	Currency          string            `json:"currency" validate:"required,len=3"`
	Nickname          *string           `json:"nickname"`
	Type              string            `json:"type" validate:"required,oneof=one_time recurring"`
	UnitAmount        *int64            `json:"unit_amount"`
	UnitAmountDecimal *string           `json:"unit_amount_decimal"`
	Recurring         *recurringPayload `json:"recurring" validate:"required_if=Type recurring"`
	Metadata          map[string]string `json:"metadata"`
}

func (p pricePayload) input() catalog.PriceInput {
	in := catalog.PriceInput{
		ID:                p.ID,
		ProductID:         p.Product.String(),
		Active:            p.Active,
		Currency:          p.Currency,
		Nickname:          p.Nickname,
		Type:              p.Type,
		UnitAmount:        p.UnitAmount,
		UnitAmountDecimal: p.UnitAmountDecimal,
		Metadata:          p.Metadata,
	}
	if p.Recurring != nil {
		in.Recurring = &catalog.RecurringInput{
			Interval:        p.Recurring.Interval,
			IntervalCount:   p.Recurring.IntervalCount,
			TrialPeriodDays: p.Recurring.TrialPeriodDays,
		}
	}
	return in
}

type subscriptionPayload struct {
	ID       string       `json:"id" validate:"required"`
	Customer expandableID `json:"customer" validate:"required"`
}

type checkoutSessionPayload struct {
	ID           string       `json:"id" validate:"required"`
	Mode         string       `json:"mode" validate:"required"`
	Customer     expandableID `json:"customer" validate:"required_if=Mode subscription"`
	Subscription expandableID `json:"subscription" validate:"required_if=Mode subscription"`
}

type invoicePayload struct {
	ID           string       `json:"id" validate:"required"`
	Customer     expandableID `json:"customer" validate:"required"`
	Subscription expandableID `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// subscriptionID returns the subscription the invoice bills for, if any.
// Newer API versions moved the reference under parent.subscription_details.
func (p invoicePayload) subscriptionID() string {
	if id := p.Subscription.String(); id != "" {
		return id
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return p.Parent.SubscriptionDetails.Subscription.String()
	}
	return ""
}

// decodePayload unmarshals the event object into dest and validates it.
// Anything that does not decode or validate is treated as incomplete data.
func decodePayload(raw json.RawMessage, dest any, kind string) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return pkgerrors.New(pkgerrors.CodeIncompleteData, kind+" payload missing")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "decode "+kind+" payload")
	}
	if err := payloadValidator.Struct(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "validate "+kind+" payload")
	}
	return nil
}
