package billing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/billing"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func authenticated(req *http.Request, user billing.User) *http.Request {
	return req.WithContext(billing.SetUserToContext(req.Context(), user))
}

func TestHandler_Webhook(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"event_type":"transaction.completed"}`)

	t.Run("acknowledges processed event", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		provider.On("VerifyWebhook", mock.Anything, payload, "sig").
			Return(checkoutEvent(uuid.New(), time.Now().UTC()), nil)

		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Paddle-Signature", "sig")
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"received": true}, decodeBody(t, rec))
	})

	t.Run("missing signature header yields 400", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		provider.AssertNotCalled(t, "VerifyWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid signature yields 400 with the underlying message", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		provider.On("VerifyWebhook", mock.Anything, payload, "bad").
			Return(nil, billing.ErrInvalidSignature)

		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Paddle-Signature", "bad")
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "signature")
	})

	t.Run("generic verification error mentioning signature is reclassified to 400", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		provider.On("VerifyWebhook", mock.Anything, payload, "sig").
			Return(nil, errors.New("Paddle-Signature header format unexpected"))

		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Paddle-Signature", "sig")
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("processing failure yields 500 so the provider retries", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		provider.On("VerifyWebhook", mock.Anything, payload, "sig").
			Return(customerEvent(billing.EventSubscriptionRenewed, time.Now().UTC()), nil)

		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Paddle-Signature", "sig")
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotEmpty(t, decodeBody(t, rec)["error"])
	})
}

func TestHandler_Checkout(t *testing.T) {
	t.Parallel()
	user := billing.User{ID: uuid.New(), Email: "jo@example.com", Name: "Jo"}

	checkoutBody := func(t *testing.T, req billing.CheckoutRequest) *bytes.Reader {
		t.Helper()
		raw, err := json.Marshal(req)
		require.NoError(t, err)
		return bytes.NewReader(raw)
	}

	t.Run("returns checkout URL", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&billing.CheckoutSession{URL: "https://pay.example.com/s/abc"}, nil)

		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodPost, "/checkout", checkoutBody(t, billing.CheckoutRequest{
			TierID:       "tier-pro",
			PaymentMode:  billing.PaymentModeSubscription,
			BillingCycle: billing.BillingCycleMonthly,
		})), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://pay.example.com/s/abc", decodeBody(t, rec)["checkoutUrl"])
	})

	t.Run("anonymous request yields 401", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, new(mockProvider), billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := httptest.NewRequest(http.MethodPost, "/checkout", checkoutBody(t, billing.CheckoutRequest{}))
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized", decodeBody(t, rec)["error"])
	})

	t.Run("validation failure yields 400 with field details", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, new(mockProvider), billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodPost, "/checkout", checkoutBody(t, billing.CheckoutRequest{
			TierID:      "tier-unknown",
			PaymentMode: billing.PaymentModeSubscription,
		})), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Validation failed", body["error"])
		details, ok := body["details"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, details, "tierId")
		assert.Contains(t, details, "billingCycle")
	})

	t.Run("malformed JSON yields 400", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, new(mockProvider), billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte("{not json"))), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Validation failed", decodeBody(t, rec)["error"])
	})

	t.Run("active subscription yields 409 with management URL", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemorySubscriptionStore()
		require.NoError(t, store.Upsert(context.Background(), &billing.Subscription{
			UserID:        user.ID,
			CustomerID:    "ctm_100",
			ProviderSubID: "sub_100",
			Status:        billing.StatusActive,
		}))

		provider := new(mockProvider)
		provider.On("CreatePortalSession", mock.Anything, "ctm_100", []string{"sub_100"}).
			Return(&billing.PortalSession{URL: "https://pay.example.com/portal/xyz"}, nil)

		svc := newTestService(t, provider, store, billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodPost, "/checkout", checkoutBody(t, billing.CheckoutRequest{
			TierID:       "tier-pro",
			PaymentMode:  billing.PaymentModeSubscription,
			BillingCycle: billing.BillingCycleMonthly,
		})), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "An active subscription already exists for this user.", body["error"])
		assert.Equal(t, "https://pay.example.com/portal/xyz", body["managementUrl"])
	})

	t.Run("provider failure yields opaque 500", func(t *testing.T) {
		t.Parallel()
		provider := new(mockProvider)
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(nil, errors.New("api key revoked"))

		svc := newTestService(t, provider, billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodPost, "/checkout", checkoutBody(t, billing.CheckoutRequest{
			TierID:      "tier-pro",
			PaymentMode: billing.PaymentModeOneTime,
		})), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Failed to create checkout session", body["error"])
		assert.NotContains(t, body["error"], "api key")
	})
}

func TestHandler_Portal(t *testing.T) {
	t.Parallel()
	user := billing.User{ID: uuid.New(), Email: "jo@example.com", Name: "Jo"}

	t.Run("returns portal URL", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemorySubscriptionStore()
		require.NoError(t, store.Upsert(context.Background(), &billing.Subscription{
			UserID:        user.ID,
			CustomerID:    "ctm_100",
			ProviderSubID: "sub_100",
			Status:        billing.StatusActive,
		}))

		provider := new(mockProvider)
		provider.On("CreatePortalSession", mock.Anything, "ctm_100", []string{"sub_100"}).
			Return(&billing.PortalSession{URL: "https://pay.example.com/portal/xyz"}, nil)

		svc := newTestService(t, provider, store, billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodGet, "/portal", nil), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://pay.example.com/portal/xyz", decodeBody(t, rec)["portalUrl"])
	})

	t.Run("anonymous request yields 401", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, new(mockProvider), billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/portal", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no subscription yields 404", func(t *testing.T) {
		t.Parallel()
		svc := newTestService(t, new(mockProvider), billing.NewMemorySubscriptionStore(), billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodGet, "/portal", nil), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "No active subscription found for this user.", decodeBody(t, rec)["error"])
	})

	t.Run("provider failure surfaces its message", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemorySubscriptionStore()
		require.NoError(t, store.Upsert(context.Background(), &billing.Subscription{
			UserID:     user.ID,
			CustomerID: "ctm_100",
			Status:     billing.StatusActive,
		}))

		provider := new(mockProvider)
		provider.On("CreatePortalSession", mock.Anything, "ctm_100", []string(nil)).
			Return(nil, errors.New("portal api down"))

		svc := newTestService(t, provider, store, billing.NewMemoryEventLedger())

		req := authenticated(httptest.NewRequest(http.MethodGet, "/portal", nil), user)
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "portal api down")
	})
}
