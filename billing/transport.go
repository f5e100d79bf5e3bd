package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handler returns the billing sub-router for mounting into the host
// application:
//
//	POST /webhook   provider-initiated event delivery
//	POST /checkout  authenticated checkout session creation
//	GET  /portal    authenticated customer portal link
//
// Checkout and portal require the authenticated user in the request
// context (SetUserToContext); the webhook endpoint authenticates via
// the provider's payload signature instead.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhook", s.handleWebhook)
	r.Post("/checkout", s.handleCheckout)
	r.Get("/portal", s.handlePortal)
	return r
}

func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// The body is forwarded verbatim to signature verification: the
	// signature is computed over the exact raw bytes, and both empty
	// and very large payloads must pass through untouched.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to read request body"})
		return
	}

	signature := r.Header.Get(s.provider.SignatureHeader())

	if err := s.HandleWebhook(r.Context(), payload, signature); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrMissingSignature), errors.Is(err, ErrInvalidSignature):
			status = http.StatusBadRequest
		case strings.Contains(strings.ToLower(err.Error()), "signature"):
			// The provider SDK may report a verification failure as a
			// generic error; reclassify it so the provider corrects the
			// request instead of retrying forever.
			status = http.StatusBadRequest
		}

		s.log.ErrorContext(r.Context(), "webhook processing failed",
			slog.Int("status", status),
			slog.Any("error", err),
		)
		// Webhook error bodies carry the underlying message: they are
		// read by the provider dashboard and operators, not end users.
		writeJSON(w, status, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (s *Service) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": map[string][]string{"body": {"must be a valid JSON object"}},
		})
		return
	}

	session, err := s.CreateCheckout(r.Context(), user, req)
	if err != nil {
		var ve ValidationError
		var conflict *AlreadySubscribedError
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "Validation failed",
				"details": ve,
			})
		case errors.As(err, &conflict):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":         "An active subscription already exists for this user.",
				"managementUrl": conflict.ManagementURL,
			})
		default:
			s.log.ErrorContext(r.Context(), "checkout failed",
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err),
			)
			// Provider internals are not leaked to end users.
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to create checkout session"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"checkoutUrl": session.URL})
}

func (s *Service) handlePortal(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}

	session, err := s.PortalURL(r.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSubscription):
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "No active subscription found for this user."})
		case errors.Is(err, ErrProviderFailure):
			// Typed provider failures surface their message so operators
			// see actionable error text.
			s.log.ErrorContext(r.Context(), "portal session failed",
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		default:
			s.log.ErrorContext(r.Context(), "portal lookup failed",
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal Server Error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"portalUrl": session.URL})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
