package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/billingsync/api/middleware"
	billingsvc "github.com/angelmondragon/billingsync/internal/billing"
	"github.com/angelmondragon/billingsync/pkg/db/models"
	"github.com/angelmondragon/billingsync/pkg/enums"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
)

type fakeBilling struct {
	checkout []billingsvc.CheckoutRequest
	portal   []billingsvc.PortalRequest
	sub      *models.Subscription
	err      error
}

func (f *fakeBilling) StartCheckout(_ context.Context, req billingsvc.CheckoutRequest) (*billingsvc.CheckoutResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.checkout = append(f.checkout, req)
	return &billingsvc.CheckoutResult{SessionID: "cs_1", URL: "https://checkout.test/cs_1"}, nil
}

func (f *fakeBilling) OpenPortal(_ context.Context, req billingsvc.PortalRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.portal = append(f.portal, req)
	return "https://portal.test/bps_1", nil
}

func (f *fakeBilling) CurrentSubscription(_ context.Context, _ uuid.UUID) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}
	return f.sub, nil
}

type fakeCatalog struct {
	products []models.Product
}

func (f *fakeCatalog) ListActiveProducts(context.Context) ([]models.Product, error) {
	return f.products, nil
}

func authedRequest(method, target string, body []byte, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithEmail(ctx, "buyer@example.com")
	return req.WithContext(ctx)
}

func TestCheckoutCreatesSession(t *testing.T) {
	svc := &fakeBilling{}
	userID := uuid.New()
	body := []byte(`{"price_id":"price_monthly","quantity":2}`)

	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/billing/checkout", body, userID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"session_id":"cs_1","url":"https://checkout.test/cs_1"}}`, rec.Body.String())
	require.Len(t, svc.checkout, 1)
	assert.Equal(t, userID, svc.checkout[0].UserID)
	assert.Equal(t, "buyer@example.com", svc.checkout[0].Email)
	assert.EqualValues(t, 2, svc.checkout[0].Quantity)
}

func TestCheckoutValidatesBody(t *testing.T) {
	svc := &fakeBilling{}
	for name, body := range map[string]string{
		"missing price": `{}`,
		"bad prefix":    `{"price_id":"prod_1"}`,
		"bad quantity":  `{"price_id":"price_1","quantity":0.5}`,
		"unknown field": `{"price_id":"price_1","coupon":"X"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Checkout(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", []byte(body), uuid.New()))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, svc.checkout)
}

func TestCheckoutRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"price_id":"price_1"}`)))
	Checkout(&fakeBilling{}, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHidesInternalErrors(t *testing.T) {
	svc := &fakeBilling{err: pkgerrors.New(pkgerrors.CodeStoreWrite, "insert customers row: duplicate key")}
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", []byte(`{"price_id":"price_1"}`), uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "duplicate key")
}

func TestPortalWithAndWithoutBody(t *testing.T) {
	svc := &fakeBilling{}

	rec := httptest.NewRecorder()
	Portal(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", nil, uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"url":"https://portal.test/bps_1"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Portal(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", []byte(`{"return_url":"https://app.test/settings"}`), uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.portal, 2)
	assert.Equal(t, "https://app.test/settings", svc.portal[1].ReturnURL)

	rec = httptest.NewRecorder()
	Portal(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", []byte(`{"return_url":"not a url"}`), uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentSubscription(t *testing.T) {
	svc := &fakeBilling{}
	userID := uuid.New()

	rec := httptest.NewRecorder()
	CurrentSubscription(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/", nil, userID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	interval := enums.PriceIntervalMonth
	amount := int64(1500)
	svc.sub = &models.Subscription{
		ID:                 "sub_1",
		UserID:             userID,
		Status:             enums.SubscriptionStatusActive,
		Quantity:           1,
		CurrentPeriodStart: time.Unix(1000, 0),
		CurrentPeriodEnd:   time.Unix(2000, 0),
		Price: &models.Price{
			ID: "price_1", ProductID: "prod_1", Currency: "usd", Type: enums.PriceTypeRecurring,
			UnitAmount: &amount, Interval: &interval,
			Product: &models.Product{ID: "prod_1", Name: "Pro"},
		},
	}
	rec = httptest.NewRecorder()
	CurrentSubscription(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/", nil, userID))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data subscriptionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sub_1", body.Data.ID)
	assert.Equal(t, "1970-01-01T00:16:40Z", body.Data.CurrentPeriodStart)
	require.NotNil(t, body.Data.Product)
	assert.Equal(t, "Pro", body.Data.Product.Name)
	require.NotNil(t, body.Data.Price)
	require.NotNil(t, body.Data.Price.Interval)
	assert.Equal(t, "month", *body.Data.Price.Interval)
}

func TestProductsListsCatalog(t *testing.T) {
	svc := &fakeCatalog{products: []models.Product{{
		ID: "prod_1", Name: "Pro", Active: true,
		Prices: []models.Price{{ID: "price_1", ProductID: "prod_1", Currency: "usd", Type: enums.PriceTypeOneTime}},
	}}}

	rec := httptest.NewRecorder()
	Products(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data productListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Products, 1)
	require.Len(t, body.Data.Products[0].Prices, 1)
	assert.Equal(t, "one_time", body.Data.Products[0].Prices[0].Type)
}
