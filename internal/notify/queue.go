package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/obs"
	"github.com/noah-isme/backend-caseshop/internal/payment"
)

// TypeOrderConfirmation is the asynq task type for confirmation emails.
const TypeOrderConfirmation = "email:order_confirmation"

// QueueEmails is the asynq queue confirmation tasks land on.
const QueueEmails = "emails"

// TaskClient is the slice of *asynq.Client the enqueuer uses.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer hands confirmation emails to the task queue. It implements the
// webhook handler's Notifier.
type Enqueuer struct {
	Client TaskClient
	Logger zerolog.Logger
}

// OrderConfirmed enqueues a confirmation email task. The task is retried by
// the worker; a failed enqueue is only logged upstream.
func (e Enqueuer) OrderConfirmed(ctx context.Context, n payment.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: encode confirmation: %w", err)
	}
	task := asynq.NewTask(TypeOrderConfirmation, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueueEmails),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		countDelivery("enqueue_error")
		return fmt.Errorf("notify: enqueue confirmation: %w", err)
	}
	e.Logger.Debug().Str("order_id", n.OrderID).Msg("confirmation_enqueued")
	countDelivery("enqueued")
	return nil
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, from, to, subject, html string) error
}

// CommonSender adapts a common.EmailSender (the in-memory and nop senders
// used in development and tests) to the Sender interface.
type CommonSender struct {
	S common.EmailSender
}

func (c CommonSender) Send(_ context.Context, _, to, subject, html string) error {
	if c.S == nil {
		return nil
	}
	return c.S.Send(to, subject, html)
}

// Worker consumes confirmation tasks and sends the email.
type Worker struct {
	Sender  Sender
	From    string
	Enabled bool
	Logger  zerolog.Logger
}

// HandleOrderConfirmation is the asynq handler for TypeOrderConfirmation.
// Undecodable payloads are not retried; transient send failures are.
func (w Worker) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var n payment.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("notify: decode confirmation payload: %v: %w", err, asynq.SkipRetry)
	}
	if !w.Enabled || n.Email == "" {
		countDelivery("skipped")
		return nil
	}
	if err := w.Sender.Send(ctx, w.From, n.Email, Subject, RenderConfirmation(n)); err != nil {
		countDelivery("error")
		w.Logger.Warn().Err(err).Str("order_id", n.OrderID).Msg("confirmation_send_failed")
		return err
	}
	countDelivery("sent")
	w.Logger.Info().Str("order_id", n.OrderID).Msg("confirmation_sent")
	return nil
}

// Mux returns an asynq mux with the notification handlers registered.
func (w Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderConfirmation, w.HandleOrderConfirmation)
	return mux
}

func countDelivery(result string) {
	if obs.EmailDeliveriesTotal != nil {
		obs.EmailDeliveriesTotal.WithLabelValues(result).Inc()
	}
}
