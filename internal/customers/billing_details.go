package customers

import (
	"encoding/json"
	"strings"
)

// Address is a postal address attached to a payment method.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no address component is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// BillingDetails are the billing fields of a subscription's default payment
// method, plus the type specific block (card brand, last4, ...).
type BillingDetails struct {
	Name              string
	Phone             string
	Address           *Address
	PaymentMethodType string
	PaymentMethod     json.RawMessage
}

// Complete reports whether name, phone and address are all present. Partial
// details are never copied.
func (d *BillingDetails) Complete() bool {
	if d == nil {
		return false
	}
	return strings.TrimSpace(d.Name) != "" &&
		strings.TrimSpace(d.Phone) != "" &&
		d.Address != nil && !d.Address.IsZero()
}
