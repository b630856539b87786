package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-caseshop/internal/paypal"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

type stubVerifier struct {
	valid bool
	calls int
}

func (v *stubVerifier) VerifyWebhookSignature(context.Context, paypal.TransmissionHeaders, []byte) bool {
	v.calls++
	return v.valid
}

type stubSettler struct {
	result SettlementResult
	err    error
	calls  int
}

func (s *stubSettler) Settle(context.Context, paypal.WebhookEvent) (SettlementResult, error) {
	s.calls++
	return s.result, s.err
}

type stubNotifier struct {
	last  Notification
	err   error
	calls int
}

func (n *stubNotifier) OrderConfirmed(_ context.Context, notif Notification) error {
	n.calls++
	n.last = notif
	return n.err
}

const webhookBody = `{"id":"WH-EVT-1","event_type":"PAYMENT.SALE.COMPLETED","resource":{"invoice_number":"order-1"}}`

func signedRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypal", strings.NewReader(body))
	r.Header.Set(paypal.HeaderAuthAlgo, "SHA256withRSA")
	r.Header.Set(paypal.HeaderCertURL, "https://api.paypal.com/cert.pem")
	r.Header.Set(paypal.HeaderTransmissionID, "tid-1")
	r.Header.Set(paypal.HeaderTransmissionSig, "sig-1")
	r.Header.Set(paypal.HeaderTransmissionTime, "2026-08-30T10:00:00Z")
	return r
}

func newWebhook(verifier SignatureVerifier, settler OrderSettler) Webhook {
	return Webhook{
		Verifier: verifier,
		Settler:  settler,
		Logger:   zerolog.Nop(),
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h := newWebhook(&stubVerifier{valid: true}, &stubSettler{})
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/paypal", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestWebhookMissingHeaders(t *testing.T) {
	verifier := &stubVerifier{valid: true}
	h := newWebhook(verifier, &stubSettler{})

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypal", strings.NewReader(webhookBody)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid webhook", rec.Body.String())
	assert.Zero(t, verifier.calls, "verify must not be called without headers")
}

func TestWebhookInvalidSignature(t *testing.T) {
	settler := &stubSettler{}
	h := newWebhook(&stubVerifier{valid: false}, settler)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid webhook", rec.Body.String())
	assert.Zero(t, settler.calls)
}

func TestWebhookMalformedEventAfterVerify(t *testing.T) {
	settler := &stubSettler{}
	h := newWebhook(&stubVerifier{valid: true}, settler)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(`{"event_type":"PAYMENT.SALE.COMPLETED"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid webhook", rec.Body.String())
	assert.Zero(t, settler.calls)
}

func TestWebhookIgnoredEventType(t *testing.T) {
	settler := &stubSettler{}
	h := newWebhook(&stubVerifier{valid: true}, settler)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(`{"id":"WH-EVT-9","event_type":"BILLING.PLAN.CREATED","resource":{}}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event ignored", rec.Body.String())
	assert.Zero(t, settler.calls)
}

func TestWebhookSettlesAndNotifies(t *testing.T) {
	settler := &stubSettler{result: SettlementResult{
		OrderID:    "order-1",
		Order:      store.Order{ID: "order-1", AmountCents: 22_00, Currency: "USD", IsPaid: true},
		PayerEmail: "ada@example.com",
	}}
	notifier := &stubNotifier{}
	h := newWebhook(&stubVerifier{valid: true}, settler)
	h.Notifier = notifier

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order updated", rec.Body.String())
	assert.Equal(t, 1, settler.calls)
	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, "ada@example.com", notifier.last.Email)
	assert.Equal(t, int64(22_00), notifier.last.AmountCents)
}

func TestWebhookNotifierFailureStillAcks(t *testing.T) {
	settler := &stubSettler{result: SettlementResult{OrderID: "order-1", Order: store.Order{ID: "order-1"}, PayerEmail: "ada@example.com"}}
	h := newWebhook(&stubVerifier{valid: true}, settler)
	h.Notifier = &stubNotifier{err: errors.New("smtp down")}

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order updated", rec.Body.String())
}

func TestWebhookNoEmailSkipsNotification(t *testing.T) {
	settler := &stubSettler{result: SettlementResult{OrderID: "order-1", Order: store.Order{ID: "order-1"}}}
	notifier := &stubNotifier{}
	h := newWebhook(&stubVerifier{valid: true}, settler)
	h.Notifier = notifier

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, notifier.calls)
}

func TestWebhookInvalidMetadata(t *testing.T) {
	h := newWebhook(&stubVerifier{valid: true}, &stubSettler{err: ErrInvalidMetadata})

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid webhook", rec.Body.String())
}

func TestWebhookOrderNotFoundIsServerError(t *testing.T) {
	h := newWebhook(&stubVerifier{valid: true}, &stubSettler{err: store.ErrOrderNotFound})

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", rec.Body.String())
}

func TestWebhookDuplicateSettlementAcks(t *testing.T) {
	notifier := &stubNotifier{}
	h := newWebhook(&stubVerifier{valid: true}, &stubSettler{result: SettlementResult{OrderID: "order-1", Duplicate: true}})
	h.Notifier = notifier

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order updated", rec.Body.String())
	assert.Zero(t, notifier.calls, "no email on redelivery")
}

func TestWebhookReplaySuppression(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	settler := &stubSettler{result: SettlementResult{OrderID: "order-1", Order: store.Order{ID: "order-1"}}}
	h := newWebhook(&stubVerifier{valid: true}, settler)
	h.Replay = rdb
	h.ReplayTTL = time.Hour

	first := httptest.NewRecorder()
	h.Handle(first, signedRequest(webhookBody))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, settler.calls)

	second := httptest.NewRecorder()
	h.Handle(second, signedRequest(webhookBody))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "Order updated", second.Body.String())
	assert.Equal(t, 1, settler.calls, "duplicate delivery must not settle again")

	// different event id passes through
	other := strings.Replace(webhookBody, "WH-EVT-1", "WH-EVT-2", 1)
	third := httptest.NewRecorder()
	h.Handle(third, signedRequest(other))
	assert.Equal(t, 2, settler.calls)
}

type flakySettler struct {
	failures int
	result   SettlementResult
	calls    int
}

func (s *flakySettler) Settle(context.Context, paypal.WebhookEvent) (SettlementResult, error) {
	s.calls++
	if s.calls <= s.failures {
		return SettlementResult{}, store.ErrOrderNotFound
	}
	return s.result, nil
}

func TestWebhookFailedSettlementStaysRetryable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	settler := &flakySettler{failures: 1, result: SettlementResult{OrderID: "order-1", Order: store.Order{ID: "order-1"}}}
	h := newWebhook(&stubVerifier{valid: true}, settler)
	h.Replay = rdb
	h.ReplayTTL = time.Hour

	// first delivery arrives before the order row is visible and must ask
	// for a retry without consuming the event id
	first := httptest.NewRecorder()
	h.Handle(first, signedRequest(webhookBody))
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, "Server error", first.Body.String())

	second := httptest.NewRecorder()
	h.Handle(second, signedRequest(webhookBody))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "Order updated", second.Body.String())
	assert.Equal(t, 2, settler.calls, "redelivery must reach the settler after a failed attempt")

	// only now is the event id consumed
	third := httptest.NewRecorder()
	h.Handle(third, signedRequest(webhookBody))
	assert.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, settler.calls)
}

func TestWebhookReplayStoreDownIsNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	settler := &stubSettler{result: SettlementResult{OrderID: "order-1", Order: store.Order{ID: "order-1"}}}
	h := newWebhook(&stubVerifier{valid: true}, settler)
	h.Replay = rdb
	h.ReplayTTL = time.Hour

	rec := httptest.NewRecorder()
	h.Handle(rec, signedRequest(webhookBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, settler.calls, "settlement proceeds without the replay store")
}
