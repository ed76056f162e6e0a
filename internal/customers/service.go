package customers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/billingsync/pkg/db"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

// ServiceParams groups dependencies for the customer identity resolver.
type ServiceParams struct {
	Repo   Repository
	Stripe StripeCustomerClient
	Logger *logger.Logger
}

// Service maps local users to provider customers.
type Service struct {
	repo   Repository
	stripe StripeCustomerClient
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer repository required")
	}
	return &Service{
		repo:   params.Repo,
		stripe: params.Stripe,
		logg:   params.Logger,
	}, nil
}

// Resolve returns the provider customer id for the user, creating the remote
// customer and the local mapping on first use.
func (s *Service) Resolve(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer mapping")
	}
	if existing != nil {
		return existing.StripeCustomerID, nil
	}

	if s.stripe == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "stripe customer client required")
	}
	customerID, err := s.stripe.Create(ctx, userID, email)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}

	row := &models.Customer{UserID: userID, StripeCustomerID: customerID}
	if email = strings.TrimSpace(email); email != "" {
		row.Email = &email
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			// a concurrent call won; the idempotency key makes its remote
			// customer the same one we just received
			winner, findErr := s.repo.FindByUserID(ctx, userID)
			if findErr == nil && winner != nil {
				return winner.StripeCustomerID, nil
			}
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"user_id":            userID.String(),
				"stripe_customer_id": customerID,
			})
			s.logg.Error(logCtx, "stripe customer orphaned: mapping insert failed", err)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "insert customer mapping")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":            userID.String(),
			"stripe_customer_id": customerID,
		})
		s.logg.Info(logCtx, "stripe customer created")
	}
	return customerID, nil
}

// UserIDForCustomer looks up the local user owning the provider customer. It
// never creates anything.
func (s *Service) UserIDForCustomer(ctx context.Context, customerID string) (uuid.UUID, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeIncompleteData, "customer id is required")
	}
	row, err := s.repo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup customer mapping")
	}
	if row == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeCustomerNotFound, "no user mapped to stripe customer").
			WithDetails(map[string]any{"stripe_customer_id": customerID})
	}
	return row.UserID, nil
}

// CopyBillingDetails pushes complete billing details onto the provider
// customer and mirrors them on the local mapping. Incomplete details are a
// no-op.
func (s *Service) CopyBillingDetails(ctx context.Context, userID uuid.UUID, customerID string, details *BillingDetails) error {
	if !details.Complete() {
		return nil
	}
	if s.stripe == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "stripe customer client required")
	}
	if err := s.stripe.UpdateBillingDetails(ctx, customerID, *details); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stripe customer billing details")
	}

	address, err := json.Marshal(details.Address)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode billing address")
	}
	var paymentMethod json.RawMessage
	if len(details.PaymentMethod) > 0 {
		paymentMethod = details.PaymentMethod
	}
	if err := s.repo.UpdateBillingDetails(ctx, userID, address, paymentMethod); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStoreWrite, err, "store billing details")
	}
	return nil
}
