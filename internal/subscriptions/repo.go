package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
	Upsert(ctx context.Context, subscription *models.Subscription) error
	FindCurrentForUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	ListForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]ReconcileTarget, error)
}

// ReconcileTarget identifies a stored subscription and the provider customer
// that owns it.
type ReconcileTarget struct {
	SubscriptionID   string
	StripeCustomerID string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Upsert writes the full row, replacing every column of an existing row.
func (r *repository) Upsert(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(subscription).Error
}

func (r *repository) FindCurrentForUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Price.Product").
		Where("user_id = ?", userID).
		Where("status IN ?", []enums.SubscriptionStatus{
			enums.SubscriptionStatusTrialing,
			enums.SubscriptionStatusActive,
		}).
		Order("created DESC").
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]ReconcileTarget, error) {
	if limit <= 0 {
		limit = 250
	}
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-lookback)
	statuses := []enums.SubscriptionStatus{
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusTrialing,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusIncomplete,
		enums.SubscriptionStatusUnpaid,
		enums.SubscriptionStatusPaused,
	}
	var targets []ReconcileTarget
	err := r.db.WithContext(ctx).
		Table("subscriptions AS s").
		Select("s.id AS subscription_id, c.stripe_customer_id AS stripe_customer_id").
		Joins("JOIN customers c ON c.user_id = s.user_id").
		Where("(s.status IN ? OR s.cancel_at_period_end OR s.current_period_end >= ?)", statuses, cutoff).
		Order("s.updated_at DESC").
		Limit(limit).
		Scan(&targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}
