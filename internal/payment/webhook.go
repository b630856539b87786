package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/obs"
	"github.com/noah-isme/backend-caseshop/internal/paypal"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

// Webhook response bodies are plain text and deliberately generic: the
// provider only needs the status code, and the bodies leak nothing about
// internal state.
const (
	respInvalid      = "Invalid webhook"
	respServerError  = "Server error"
	respOrderUpdated = "Order updated"
	respIgnored      = "Event ignored"
)

// SignatureVerifier abstracts the PayPal verify call for tests.
type SignatureVerifier interface {
	VerifyWebhookSignature(ctx context.Context, hdrs paypal.TransmissionHeaders, rawBody []byte) bool
}

// Notification carries what the confirmation email needs.
type Notification struct {
	OrderID         string
	Email           string
	AmountCents     int64
	Currency        string
	ShippingAddress store.Address
}

// Notifier delivers an order confirmation. Failures must not affect the
// webhook response; settlement has already committed.
type Notifier interface {
	OrderConfirmed(ctx context.Context, n Notification) error
}

// OrderSettler is implemented by Settler.
type OrderSettler interface {
	Settle(ctx context.Context, ev paypal.WebhookEvent) (SettlementResult, error)
}

// ReplayStore suppresses duplicate deliveries. *redis.Client satisfies it.
type ReplayStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
}

// Webhook is the PayPal webhook endpoint: verification, replay suppression,
// settlement, then best-effort notification.
type Webhook struct {
	Verifier  SignatureVerifier
	Settler   OrderSettler
	Replay    ReplayStore
	ReplayTTL time.Duration
	Notifier  Notifier
	Logger    zerolog.Logger
}

// Handle processes one webhook delivery. The response contract is fixed:
// 200 acknowledges (settled, duplicate or ignored), 400 rejects deliveries
// PayPal should not retry, 500 asks for a retry.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		common.Text(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.count("unknown", "invalid")
		common.Text(w, http.StatusBadRequest, respInvalid)
		return
	}

	hdrs, ok := paypal.HeadersFromRequest(r)
	if !ok {
		h.Logger.Warn().Msg("webhook_headers_incomplete")
		h.count("unknown", "invalid")
		common.Text(w, http.StatusBadRequest, respInvalid)
		return
	}
	if !h.Verifier.VerifyWebhookSignature(ctx, hdrs, body) {
		h.Logger.Warn().Str("transmission_id", hdrs.TransmissionID).Msg("webhook_signature_invalid")
		h.count("unknown", "invalid")
		common.Text(w, http.StatusBadRequest, respInvalid)
		return
	}

	ev, err := paypal.ParseEvent(body)
	if err != nil {
		// verified but undecodable; nothing to retry
		h.Logger.Error().Err(err).Msg("webhook_event_malformed")
		h.count("unknown", "invalid")
		common.Text(w, http.StatusBadRequest, respInvalid)
		return
	}
	logger := h.Logger.With().Str("event_id", ev.ID).Str("event_type", ev.EventType).Logger()

	if ev.Kind() == paypal.KindIgnored {
		h.count(ev.EventType, "ignored")
		common.Text(w, http.StatusOK, respIgnored)
		return
	}

	replayKey := "paypal:wh:" + ev.ID
	if h.replayEnabled() {
		seen, err := h.Replay.Exists(ctx, replayKey).Result()
		if err != nil {
			// settlement is idempotent, so a replay-store outage is not fatal
			logger.Warn().Err(err).Msg("webhook_replay_store_unavailable")
		} else if seen > 0 {
			logger.Info().Msg("webhook_replay_suppressed")
			h.count(ev.EventType, "duplicate")
			common.Text(w, http.StatusOK, respOrderUpdated)
			return
		}
	}

	result, err := h.Settler.Settle(ctx, ev)
	switch {
	case errors.Is(err, ErrInvalidMetadata) || errors.Is(err, paypal.ErrMalformedEvent):
		logger.Error().Err(err).Msg("webhook_metadata_invalid")
		h.count(ev.EventType, "invalid")
		common.Text(w, http.StatusBadRequest, respInvalid)
		return
	case err != nil:
		// includes order-not-found: a 500 makes PayPal redeliver, giving an
		// out-of-order webhook a chance to land after the order exists
		logger.Error().Err(err).Msg("webhook_settlement_failed")
		h.count(ev.EventType, "error")
		common.Text(w, http.StatusInternalServerError, respServerError)
		return
	}

	// The key is written only once settlement has committed. A delivery that
	// 500s leaves no key behind, so the provider's retry of the same event id
	// reaches the settler again instead of being acked as a duplicate.
	h.markSeen(ctx, logger, replayKey)

	if result.Duplicate {
		h.count(ev.EventType, "duplicate")
		common.Text(w, http.StatusOK, respOrderUpdated)
		return
	}

	logger.Info().Str("order_id", result.OrderID).Msg("order_settled")
	h.count(ev.EventType, "settled")

	if h.Notifier != nil && result.PayerEmail != "" {
		n := Notification{
			OrderID:         result.Order.ID,
			Email:           result.PayerEmail,
			AmountCents:     result.Order.AmountCents,
			Currency:        result.Order.Currency,
			ShippingAddress: result.ShippingAddress,
		}
		if err := h.Notifier.OrderConfirmed(ctx, n); err != nil {
			logger.Warn().Err(err).Msg("webhook_notify_failed")
		}
	}

	common.Text(w, http.StatusOK, respOrderUpdated)
}

func (h Webhook) replayEnabled() bool {
	return h.Replay != nil && h.ReplayTTL > 0
}

func (h Webhook) markSeen(ctx context.Context, logger zerolog.Logger, key string) {
	if !h.replayEnabled() {
		return
	}
	if err := h.Replay.SetNX(ctx, key, "1", h.ReplayTTL).Err(); err != nil {
		logger.Warn().Err(err).Msg("webhook_replay_mark_failed")
	}
}

func (h Webhook) count(event, result string) {
	if obs.PayPalWebhookTotal != nil {
		obs.PayPalWebhookTotal.WithLabelValues(event, result).Inc()
	}
}
