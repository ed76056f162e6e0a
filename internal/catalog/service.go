package catalog

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

// ProductInput is the provider product as delivered on the wire.
type ProductInput struct {
	ID          string
	Active      bool
	Name        string
	Description *string
	Images      []string
	Metadata    map[string]string
}

// RecurringInput carries the billing cadence of a recurring price.
type RecurringInput struct {
	Interval        string
	IntervalCount   int64
	TrialPeriodDays *int64
}

// PriceInput is the provider price as delivered on the wire.
type PriceInput struct {
	ID                string
	ProductID         string
	Active            bool
	Currency          string
	Nickname          *string
	Type              string
	UnitAmount        *int64
	UnitAmountDecimal *string
	Recurring         *RecurringInput
	Metadata          map[string]string
}

// Service upserts catalog entities and serves the read side for checkout.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// UpsertProduct overwrites the stored product with the incoming one.
func (s *Service) UpsertProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	product, err := BuildProduct(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "upsert product")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID), "product upserted")
	}
	return product, nil
}

// UpsertPrice overwrites the stored price with the incoming one. The product
// does not need to exist yet.
func (s *Service) UpsertPrice(ctx context.Context, input PriceInput) (*models.Price, error) {
	price, err := BuildPrice(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertPrice(ctx, price); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "upsert price")
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"price_id": price.ID, "product_id": price.ProductID})
		s.logg.Info(ctx, "price upserted")
	}
	return price, nil
}

// FindPrice returns the price with its product, or CodeNotFound.
func (s *Service) FindPrice(ctx context.Context, id string) (*models.Price, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price id is required")
	}
	price, err := s.repo.FindPrice(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price")
	}
	if price == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price not found")
	}
	return price, nil
}

// ListActiveProducts returns active products with their active prices.
func (s *Service) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListActiveProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

// BuildProduct maps the provider product onto the local row.
func BuildProduct(input ProductInput) (*models.Product, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "product id is required")
	}
	metadata, err := encodeMetadata(input.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "encode product metadata")
	}

	product := &models.Product{
		ID:          id,
		Active:      input.Active,
		Name:        input.Name,
		Description: nonEmpty(input.Description),
		Metadata:    metadata,
	}
	if len(input.Images) > 0 && strings.TrimSpace(input.Images[0]) != "" {
		image := input.Images[0]
		product.Image = &image
	}
	return product, nil
}

// BuildPrice maps the provider price onto the local row.
func BuildPrice(input PriceInput) (*models.Price, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "price id is required")
	}
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "price product is required")
	}
	priceType, err := enums.ParsePriceType(input.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "price type")
	}
	metadata, err := encodeMetadata(input.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "encode price metadata")
	}

	price := &models.Price{
		ID:          id,
		ProductID:   productID,
		Active:      input.Active,
		Currency:    strings.ToLower(input.Currency),
		Description: nonEmpty(input.Nickname),
		Type:        priceType,
		UnitAmount:  input.UnitAmount,
		Metadata:    metadata,
	}

	if input.UnitAmountDecimal != nil && strings.TrimSpace(*input.UnitAmountDecimal) != "" {
		amount, err := decimal.NewFromString(strings.TrimSpace(*input.UnitAmountDecimal))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "price unit_amount_decimal")
		}
		price.UnitAmountDecimal = decimal.NullDecimal{Decimal: amount, Valid: true}
	}

	if input.Recurring != nil {
		interval, err := enums.ParsePriceInterval(input.Recurring.Interval)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeIncompleteData, err, "price interval")
		}
		price.Interval = &interval
		if input.Recurring.IntervalCount > 0 {
			count := input.Recurring.IntervalCount
			price.IntervalCount = &count
		}
		price.TrialPeriodDays = input.Recurring.TrialPeriodDays
	}

	return price, nil
}

func encodeMetadata(metadata map[string]string) (json.RawMessage, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func nonEmpty(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	v := *value
	return &v
}
