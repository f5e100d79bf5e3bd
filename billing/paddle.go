package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

// SignatureHeader returns the header Paddle signs its deliveries with.
func (p *PaddleProvider) SignatureHeader() string {
	return "Paddle-Signature"
}

// CreateCheckoutSession creates a hosted checkout transaction in Paddle.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if params.PriceID == "" {
		return nil, errors.New("price ID is required")
	}
	if params.UserID == "" {
		return nil, errors.New("user ID is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  params.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		// Round-tripped through webhook payloads so events can be
		// attributed to the internal user and tier.
		CustomData: paddle.CustomData{
			"user_id":      params.UserID,
			"tier_id":      params.TierID,
			"payment_mode": string(params.Mode),
		},
	}
	if params.Email != "" {
		transactionReq.CustomData["email"] = params.Email
	}
	if params.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(params.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil || *transaction.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		// Paddle checkout links typically expire in 24 hours.
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// CreatePortalSession mints a customer portal link for a Paddle customer.
func (p *PaddleProvider) CreatePortalSession(ctx context.Context, customerID string, subscriptionIDs ...string) (*PortalSession, error) {
	if customerID == "" {
		return nil, errors.New("customer ID is required")
	}

	portalSession, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID:      customerID,
		SubscriptionIDs: subscriptionIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle customer portal session: %w", err)
	}

	if portalSession.URLs.General.Overview == "" {
		return nil, ErrNoPortalURL
	}

	return &PortalSession{
		URL:       portalSession.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// paddleEnvelope is the common shape of every Paddle webhook payload.
type paddleEnvelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// VerifyWebhook validates the Paddle signature over the raw payload and
// normalizes the event envelope.
func (p *PaddleProvider) VerifyWebhook(ctx context.Context, payload []byte, signature string) (*VerifiedEvent, error) {
	// The SDK verifier consumes an http.Request; reconstruct one around
	// the exact raw bytes the signature was computed over.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var envelope paddleEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, errors.Join(ErrInvalidWebhookPayload, err)
	}

	ev := &VerifiedEvent{
		ProviderEvent: envelope.EventType,
		Raw:           envelope.Data,
	}
	if ts, err := time.Parse(time.RFC3339, envelope.OccurredAt); err == nil {
		ev.OccurredAt = ts
	}

	if stringField(envelope.Data, "id") != "" {
		ev.ObjectID = stringField(envelope.Data, "id")
	}
	ev.Status = mapPaddleStatus(stringField(envelope.Data, "status"))
	ev.CustomerID = stringField(envelope.Data, "customer_id")
	ev.CurrentPeriodEnd = periodEnd(envelope.Data)

	if custom, ok := envelope.Data["custom_data"].(map[string]any); ok {
		ev.UserID = stringField(custom, "user_id")
		ev.TierID = stringField(custom, "tier_id")
	}

	switch {
	case strings.HasPrefix(envelope.EventType, "subscription."):
		ev.SubscriptionID = ev.ObjectID
		ev.TierID, ev.BillingCycle = subscriptionItemInfo(envelope.Data, ev.TierID)
	case strings.HasPrefix(envelope.EventType, "transaction."):
		ev.SubscriptionID = stringField(envelope.Data, "subscription_id")
		if ev.SubscriptionID != "" {
			// Prefer the subscription as the logical object so retried
			// transaction deliveries and subscription events collapse
			// consistently.
			ev.ObjectID = ev.SubscriptionID
		}
	}

	ev.Type = p.mapEventType(envelope, ev)

	return ev, nil
}

// mapEventType normalizes Paddle event names. Transaction completions
// for one-time purchases keep the raw provider name: they carry no
// subscription to transition and fall through the engine as ignored
// (acknowledged, recorded, not acted on).
func (p *PaddleProvider) mapEventType(envelope paddleEnvelope, ev *VerifiedEvent) EventType {
	subscriptionMode := ev.SubscriptionID != ""
	if custom, ok := envelope.Data["custom_data"].(map[string]any); ok {
		if stringField(custom, "payment_mode") == string(PaymentModeSubscription) {
			subscriptionMode = true
		}
	}

	switch envelope.EventType {
	case "transaction.completed":
		if subscriptionMode {
			return EventCheckoutCompleted
		}
	case "subscription.created":
		return EventSubscriptionCreated
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCanceled
	case "subscription.past_due":
		return EventPaymentFailed
	case "transaction.payment_failed":
		if subscriptionMode {
			return EventPaymentFailed
		}
	case "transaction.payment_succeeded":
		if subscriptionMode {
			return EventSubscriptionRenewed
		}
	}
	return EventType(envelope.EventType)
}

func mapPaddleStatus(paddleStatus string) Status {
	switch strings.ToLower(paddleStatus) {
	case "trialing":
		return StatusTrialing
	case "active":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "canceled", "cancelled":
		return StatusCanceled
	default:
		return Status(paddleStatus)
	}
}

// subscriptionItemInfo extracts the price ID and billing cycle from the
// first subscription item. The price ID doubles as the tier fallback
// when checkout metadata is absent.
func subscriptionItemInfo(data map[string]any, tierID string) (string, BillingCycle) {
	var cycle BillingCycle

	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		return tierID, cycle
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		return tierID, cycle
	}
	price, ok := item["price"].(map[string]any)
	if !ok {
		return tierID, cycle
	}

	if tierID == "" {
		tierID = stringField(price, "id")
	}

	if bc, ok := price["billing_cycle"].(map[string]any); ok {
		switch stringField(bc, "interval") {
		case "month":
			cycle = BillingCycleMonthly
		case "year":
			cycle = BillingCycleYearly
		}
	}

	return tierID, cycle
}

func periodEnd(data map[string]any) *time.Time {
	period, ok := data["current_billing_period"].(map[string]any)
	if !ok {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, stringField(period, "ends_at"))
	if err != nil {
		return nil
	}
	return &ts
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
