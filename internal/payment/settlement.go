// Package payment settles orders from verified PayPal webhook events.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-caseshop/internal/paypal"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

// ErrInvalidMetadata indicates a verified event whose resource carries no
// usable order correlation. The payment cannot be attributed to an order.
var ErrInvalidMetadata = errors.New("payment: event missing order correlation")

// SettlementStore is the slice of the store the settler needs.
type SettlementStore interface {
	MarkOrderPaid(ctx context.Context, orderID string, addrs store.SettlementAddresses) (store.Order, error)
}

// SettlementResult reports what a settlement did.
type SettlementResult struct {
	OrderID         string
	Order           store.Order
	PayerEmail      string
	ShippingAddress store.Address
	// Duplicate is true when the order had already been settled by an earlier
	// delivery of the same payment. Nothing was written.
	Duplicate bool
}

// Settler applies a completed payment to its order.
type Settler struct {
	Store  SettlementStore
	Logger zerolog.Logger
}

// Settle extracts the order correlation and addresses from a verified event
// and marks the order paid. Events of an unhandled type return
// ErrInvalidMetadata only if dispatched here by mistake; the webhook handler
// filters them first.
func (s Settler) Settle(ctx context.Context, ev paypal.WebhookEvent) (SettlementResult, error) {
	var (
		orderID string
		email   string
		addrs   store.SettlementAddresses
		err     error
	)
	switch ev.Kind() {
	case paypal.KindSaleCompleted:
		orderID, email, addrs, err = s.fromSale(ev)
	case paypal.KindOrderApproved:
		orderID, email, addrs, err = s.fromOrder(ev)
	default:
		return SettlementResult{}, fmt.Errorf("payment: unhandled event type %q", ev.EventType)
	}
	if err != nil {
		return SettlementResult{}, err
	}

	order, err := s.Store.MarkOrderPaid(ctx, orderID, addrs)
	if errors.Is(err, store.ErrAlreadySettled) {
		s.Logger.Info().Str("order_id", orderID).Str("event_id", ev.ID).Msg("order_already_settled")
		return SettlementResult{OrderID: orderID, Duplicate: true}, nil
	}
	if errors.Is(err, store.ErrInvalidID) {
		// correlation value was present but is not an order id
		return SettlementResult{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err != nil {
		return SettlementResult{}, err
	}
	return SettlementResult{OrderID: orderID, Order: order, PayerEmail: email, ShippingAddress: addrs.Shipping}, nil
}

func (s Settler) fromSale(ev paypal.WebhookEvent) (string, string, store.SettlementAddresses, error) {
	sale, err := paypal.SaleFromEvent(ev)
	if err != nil {
		return "", "", store.SettlementAddresses{}, err
	}
	orderID, ok := sale.CorrelationID()
	if !ok {
		return "", "", store.SettlementAddresses{}, ErrInvalidMetadata
	}
	shipping := toStoreAddress(sale.ShippingAddr)
	billing := toStoreAddress(sale.BillingAddr)
	if sale.BillingAddr.IsZero() {
		billing = shipping
	}
	return orderID, sale.Payer.PayerInfo.Email, store.SettlementAddresses{Shipping: shipping, Billing: billing}, nil
}

func (s Settler) fromOrder(ev paypal.WebhookEvent) (string, string, store.SettlementAddresses, error) {
	order, err := paypal.OrderFromEvent(ev)
	if err != nil {
		return "", "", store.SettlementAddresses{}, err
	}
	orderID, ok := order.CorrelationID()
	if !ok {
		return "", "", store.SettlementAddresses{}, ErrInvalidMetadata
	}
	// the orders payload carries no billing address; reuse shipping
	shipping := toStoreAddress(order.ShippingAddress())
	return orderID, order.Payer.EmailAddress, store.SettlementAddresses{Shipping: shipping, Billing: shipping}, nil
}

func toStoreAddress(a paypal.EventAddress) store.Address {
	street := a.Line1
	if a.Line2 != "" {
		street = strings.TrimSpace(street + ", " + a.Line2)
	}
	return store.Address{
		Name:        a.RecipientName,
		Street:      street,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.CountryCode,
		PhoneNumber: a.Phone,
	}
}
