package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/payment"
	"github.com/noah-isme/backend-caseshop/internal/resilience"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

func sampleNotification() payment.Notification {
	return payment.Notification{
		OrderID:     "order-1",
		Email:       "ada@example.com",
		AmountCents: 22_00,
		Currency:    "USD",
		ShippingAddress: store.Address{
			Name:       "Ada Lovelace",
			Street:     "12 Analytical Way",
			City:       "London",
			PostalCode: "EC1A 1BB",
			Country:    "GB",
		},
	}
}

func TestRenderConfirmation(t *testing.T) {
	html := RenderConfirmation(sampleNotification())
	assert.Contains(t, html, "order-1")
	assert.Contains(t, html, "$22.00")
	assert.Contains(t, html, "12 Analytical Way")
	assert.Contains(t, html, "London EC1A 1BB")
}

func TestRenderConfirmationEscapesHTML(t *testing.T) {
	n := sampleNotification()
	n.ShippingAddress.Name = `<script>alert("x")</script>`
	html := RenderConfirmation(n)
	assert.NotContains(t, html, "<script>")
}

func TestRenderConfirmationWithoutAddress(t *testing.T) {
	n := sampleNotification()
	n.ShippingAddress = store.Address{}
	html := RenderConfirmation(n)
	assert.NotContains(t, html, "Shipping to")
}

type stubTaskClient struct {
	last *asynq.Task
	err  error
}

func (c *stubTaskClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.last = task
	if c.err != nil {
		return nil, c.err
	}
	return &asynq.TaskInfo{}, nil
}

func TestEnqueuerOrderConfirmed(t *testing.T) {
	client := &stubTaskClient{}
	e := Enqueuer{Client: client, Logger: zerolog.Nop()}

	require.NoError(t, e.OrderConfirmed(context.Background(), sampleNotification()))
	require.NotNil(t, client.last)
	assert.Equal(t, TypeOrderConfirmation, client.last.Type())

	var n payment.Notification
	require.NoError(t, json.Unmarshal(client.last.Payload(), &n))
	assert.Equal(t, "order-1", n.OrderID)
	assert.Equal(t, "ada@example.com", n.Email)
}

func TestEnqueuerPropagatesFailure(t *testing.T) {
	e := Enqueuer{Client: &stubTaskClient{err: errors.New("redis down")}, Logger: zerolog.Nop()}
	assert.Error(t, e.OrderConfirmed(context.Background(), sampleNotification()))
}

func TestWorkerSendsConfirmation(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := Worker{Sender: CommonSender{S: mail}, From: "orders@caseshop.example", Enabled: true, Logger: zerolog.Nop()}

	payload, err := json.Marshal(sampleNotification())
	require.NoError(t, err)
	require.NoError(t, w.HandleOrderConfirmation(context.Background(), asynq.NewTask(TypeOrderConfirmation, payload)))

	require.Len(t, mail.Outbox, 1)
	assert.Equal(t, "ada@example.com", mail.Outbox[0].To)
	assert.Equal(t, Subject, mail.Outbox[0].Subject)
	assert.Contains(t, mail.Outbox[0].HTML, "order-1")
}

func TestWorkerDisabledSkipsSend(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := Worker{Sender: CommonSender{S: mail}, Enabled: false, Logger: zerolog.Nop()}

	payload, _ := json.Marshal(sampleNotification())
	require.NoError(t, w.HandleOrderConfirmation(context.Background(), asynq.NewTask(TypeOrderConfirmation, payload)))
	assert.Empty(t, mail.Outbox)
}

func TestWorkerBadPayloadSkipsRetry(t *testing.T) {
	w := Worker{Sender: CommonSender{}, Enabled: true, Logger: zerolog.Nop()}
	err := w.HandleOrderConfirmation(context.Background(), asynq.NewTask(TypeOrderConfirmation, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestResendSender(t *testing.T) {
	var got resendPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	t.Cleanup(srv.Close)

	s := ResendSender{
		APIKey:   "re_test_key",
		HTTP:     &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Endpoint: srv.URL,
	}
	err := s.Send(context.Background(), "orders@caseshop.example", "ada@example.com", Subject, "<h1>hi</h1>")
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test_key", auth)
	assert.Equal(t, "orders@caseshop.example", got.From)
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, Subject, got.Subject)
}

func TestResendSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	s := ResendSender{HTTP: &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1}, Endpoint: srv.URL}
	assert.Error(t, s.Send(context.Background(), "a@b", "c@d", "s", "h"))
}
