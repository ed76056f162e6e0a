package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/billingsync/api/middleware"
	"github.com/angelmondragon/billingsync/api/responses"
	"github.com/angelmondragon/billingsync/api/validators"
	billingsvc "github.com/angelmondragon/billingsync/internal/billing"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

// BillingService describes the bridge operations used by the HTTP controllers.
type BillingService interface {
	StartCheckout(ctx context.Context, req billingsvc.CheckoutRequest) (*billingsvc.CheckoutResult, error)
	OpenPortal(ctx context.Context, req billingsvc.PortalRequest) (string, error)
	CurrentSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type CatalogService interface {
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
}

type checkoutRequest struct {
	PriceID  string            `json:"price_id" validate:"required,startswith=price_"`
	Quantity int64             `json:"quantity" validate:"omitempty,gte=1,lte=1000"`
	Metadata map[string]string `json:"metadata" validate:"omitempty,max=20"`
}

type portalRequest struct {
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

func Checkout(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.StartCheckout(ctx, billingsvc.CheckoutRequest{
			UserID:   userID,
			Email:    middleware.EmailFromContext(ctx),
			PriceID:  strings.TrimSpace(payload.PriceID),
			Quantity: payload.Quantity,
			Metadata: validators.SanitizeMetadata(payload.Metadata),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{SessionID: result.SessionID, URL: result.URL})
	}
}

func Portal(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload portalRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		url, err := svc.OpenPortal(ctx, billingsvc.PortalRequest{
			UserID:    userID,
			Email:     middleware.EmailFromContext(ctx),
			ReturnURL: payload.ReturnURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, portalResponse{URL: url})
	}
}

func CurrentSubscription(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}
		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.CurrentSubscription(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

// Products lists the active catalog. The route is public.
func Products(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		products, err := svc.ListActiveProducts(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, productToResponse(p))
		}
		responses.WriteSuccess(w, productListResponse{Products: out})
	}
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return id, nil
}
