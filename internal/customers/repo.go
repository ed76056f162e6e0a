package customers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/billingsync/pkg/db/models"
)

// Repository persists the user to provider customer mapping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	UpdateBillingDetails(ctx context.Context, userID uuid.UUID, billingAddress, paymentMethod json.RawMessage) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Customer, error) {
	return r.findOne(ctx, "stripe_customer_id = ?", customerID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where(query, arg).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) UpdateBillingDetails(ctx context.Context, userID uuid.UUID, billingAddress, paymentMethod json.RawMessage) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"billing_address": billingAddress,
			"payment_method":  paymentMethod,
		}).Error
}
