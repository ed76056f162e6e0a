package enums

import "slices"

// PriceType distinguishes one-off charges from recurring plans.
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

var priceTypes = []PriceType{PriceTypeOneTime, PriceTypeRecurring}

func (p PriceType) String() string { return string(p) }

func (p PriceType) IsValid() bool { return slices.Contains(priceTypes, p) }

func ParsePriceType(value string) (PriceType, error) {
	return parseEnum("price type", priceTypes, value)
}

// PriceInterval is the billing cadence of a recurring price.
type PriceInterval string

const (
	PriceIntervalDay   PriceInterval = "day"
	PriceIntervalWeek  PriceInterval = "week"
	PriceIntervalMonth PriceInterval = "month"
	PriceIntervalYear  PriceInterval = "year"
)

var priceIntervals = []PriceInterval{
	PriceIntervalDay,
	PriceIntervalWeek,
	PriceIntervalMonth,
	PriceIntervalYear,
}

func (i PriceInterval) String() string { return string(i) }

func (i PriceInterval) IsValid() bool { return slices.Contains(priceIntervals, i) }

func ParsePriceInterval(value string) (PriceInterval, error) {
	return parseEnum("price interval", priceIntervals, value)
}
