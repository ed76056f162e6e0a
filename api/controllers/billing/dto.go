package billing

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/billingsync/pkg/db/models"
)

type priceResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	Active            bool            `json:"active"`
	Currency          string          `json:"currency"`
	Description       *string         `json:"description,omitempty"`
	Type              string          `json:"type"`
	UnitAmount        *int64          `json:"unit_amount"`
	UnitAmountDecimal *string         `json:"unit_amount_decimal,omitempty"`
	Interval          *string         `json:"interval,omitempty"`
	IntervalCount     *int64          `json:"interval_count,omitempty"`
	TrialPeriodDays   *int64          `json:"trial_period_days,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Image       *string         `json:"image,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Prices      []priceResponse `json:"prices"`
}

type productListResponse struct {
	Products []productResponse `json:"products"`
}

type subscriptionResponse struct {
	ID                 string           `json:"id"`
	Status             string           `json:"status"`
	Quantity           int64            `json:"quantity"`
	CancelAtPeriodEnd  bool             `json:"cancel_at_period_end"`
	CancelAt           *string          `json:"cancel_at,omitempty"`
	CurrentPeriodStart string           `json:"current_period_start"`
	CurrentPeriodEnd   string           `json:"current_period_end"`
	TrialEnd           *string          `json:"trial_end,omitempty"`
	Price              *priceResponse   `json:"price,omitempty"`
	Product            *productResponse `json:"product,omitempty"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type portalResponse struct {
	URL string `json:"url"`
}

func priceToResponse(p models.Price) priceResponse {
	resp := priceResponse{
		ID:              p.ID,
		ProductID:       p.ProductID,
		Active:          p.Active,
		Currency:        p.Currency,
		Description:     p.Description,
		Type:            p.Type.String(),
		UnitAmount:      p.UnitAmount,
		IntervalCount:   p.IntervalCount,
		TrialPeriodDays: p.TrialPeriodDays,
		Metadata:        p.Metadata,
	}
	if p.UnitAmountDecimal.Valid {
		s := p.UnitAmountDecimal.Decimal.String()
		resp.UnitAmountDecimal = &s
	}
	if p.Interval != nil {
		s := string(*p.Interval)
		resp.Interval = &s
	}
	return resp
}

func productToResponse(p models.Product) productResponse {
	prices := make([]priceResponse, 0, len(p.Prices))
	for _, price := range p.Prices {
		prices = append(prices, priceToResponse(price))
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Metadata:    p.Metadata,
		Prices:      prices,
	}
}

func subscriptionToResponse(s *models.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		ID:                 s.ID,
		Status:             string(s.Status),
		Quantity:           s.Quantity,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CancelAt:           formatOptionalTime(s.CancelAt),
		CurrentPeriodStart: s.CurrentPeriodStart.UTC().Format(time.RFC3339),
		CurrentPeriodEnd:   s.CurrentPeriodEnd.UTC().Format(time.RFC3339),
		TrialEnd:           formatOptionalTime(s.TrialEnd),
	}
	if s.Price != nil {
		price := priceToResponse(*s.Price)
		resp.Price = &price
		if s.Price.Product != nil {
			product := productToResponse(*s.Price.Product)
			resp.Product = &product
		}
	}
	return resp
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
