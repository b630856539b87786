// Package checkout creates PayPal payment sessions for saved case
// configurations.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-caseshop/internal/common"
	"github.com/noah-isme/backend-caseshop/internal/obs"
	"github.com/noah-isme/backend-caseshop/internal/paypal"
	"github.com/noah-isme/backend-caseshop/internal/pricing"
	"github.com/noah-isme/backend-caseshop/internal/store"
)

type Input struct {
	ConfigurationID string `json:"configurationId" validate:"required,uuid"`
}

type Output struct {
	OrderID     string `json:"orderId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	URL         string `json:"url"`
}

// StatusOutput is what the thank-you page polls for after the payer returns
// from PayPal. The shipping address is present once the order is settled.
type StatusOutput struct {
	OrderID         string          `json:"orderId"`
	IsPaid          bool            `json:"isPaid"`
	Status          string          `json:"status"`
	AmountCents     int64           `json:"amountCents"`
	Currency        string          `json:"currency"`
	ShippingAddress *ShippingOutput `json:"shippingAddress,omitempty"`
}

type ShippingOutput struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CheckoutStore is the slice of the store checkout needs.
type CheckoutStore interface {
	GetConfiguration(ctx context.Context, id string) (store.Configuration, error)
	FindUnpaidOrder(ctx context.Context, userID, configurationID string) (store.Order, error)
	CreateOrder(ctx context.Context, p store.CreateOrderParams) (store.Order, error)
	GetOrder(ctx context.Context, id string) (store.Order, error)
	GetAddress(ctx context.Context, id string) (store.Address, error)
}

// PaymentCreator abstracts the PayPal payment call for tests.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, params paypal.CreatePaymentParams) (paypal.Payment, error)
}

type Service struct {
	Store    CheckoutStore
	Payments PaymentCreator
	// PublicBaseURL is the storefront origin the payer returns to after
	// approving or cancelling the payment.
	PublicBaseURL string
	Currency      string
	Logger        zerolog.Logger
}

// Create prices the configuration, ensures an open order exists for the user
// and opens a PayPal payment for it. Repeated calls before payment reuse the
// same order rather than creating a new one.
func (s *Service) Create(ctx context.Context, userID string, in Input) (Output, error) {
	if s == nil || s.Store == nil || s.Payments == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return Output{}, common.NewAppError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized, nil)
	}

	cfg, err := s.Store.GetConfiguration(ctx, in.ConfigurationID)
	if errors.Is(err, store.ErrConfigurationNotFound) || errors.Is(err, store.ErrInvalidID) {
		s.count("configuration_not_found")
		return Output{}, common.NewAppError("CONFIGURATION_NOT_FOUND", "configuration not found", http.StatusNotFound, nil)
	}
	if err != nil {
		s.count("error")
		return Output{}, err
	}

	amount := pricing.Total(cfg.Finish, cfg.Material)

	order, err := s.Store.FindUnpaidOrder(ctx, userID, cfg.ID)
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		order, err = s.Store.CreateOrder(ctx, store.CreateOrderParams{
			UserID:          userID,
			ConfigurationID: cfg.ID,
			AmountCents:     int64(amount),
			Currency:        s.currency(),
		})
		if err != nil {
			s.count("error")
			return Output{}, err
		}
	case err != nil:
		s.count("error")
		return Output{}, err
	}

	payment, err := s.Payments.CreatePayment(ctx, paypal.CreatePaymentParams{
		AmountCents:   order.AmountCents,
		Currency:      order.Currency,
		Description:   fmt.Sprintf("Custom %s case", cfg.Model),
		ItemName:      fmt.Sprintf("Custom %s case (%s, %s)", cfg.Model, cfg.Finish, cfg.Material),
		ItemSKU:       cfg.ID,
		InvoiceNumber: order.ID,
		Custom:        paypal.EncodeCustom(order.ID),
		ReturnURL:     s.returnURL(order.ID),
		CancelURL:     s.cancelURL(cfg.ID),
	})
	if err != nil {
		s.count("provider_error")
		return Output{}, common.NewAppError("PAYMENT_PROVIDER_ERROR", "unable to create payment session", http.StatusBadGateway, nil)
	}
	url, ok := payment.ApprovalURL()
	if !ok {
		s.Logger.Error().Str("payment_id", payment.ID).Msg("payment_missing_approval_link")
		s.count("provider_error")
		return Output{}, common.NewAppError("NO_APPROVAL_LINK", "payment session has no approval link", http.StatusBadGateway, nil)
	}

	s.Logger.Info().
		Str("order_id", order.ID).
		Str("payment_id", payment.ID).
		Int64("amount_cents", order.AmountCents).
		Msg("checkout_session_created")
	s.count("created")

	return Output{
		OrderID:     order.ID,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		URL:         url,
	}, nil
}

// Status loads an order for its owner. Lookups by other users report the
// order as missing rather than confirming it exists.
func (s *Service) Status(ctx context.Context, userID, orderID string) (StatusOutput, error) {
	if s == nil || s.Store == nil {
		return StatusOutput{}, errors.New("checkout service not configured")
	}
	if userID == "" {
		return StatusOutput{}, common.NewAppError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized, nil)
	}

	order, err := s.Store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrOrderNotFound) || errors.Is(err, store.ErrInvalidID) {
		return StatusOutput{}, common.NewAppError("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, nil)
	}
	if err != nil {
		return StatusOutput{}, err
	}
	if order.UserID != userID {
		return StatusOutput{}, common.NewAppError("ORDER_NOT_FOUND", "order not found", http.StatusNotFound, nil)
	}

	out := StatusOutput{
		OrderID:     order.ID,
		IsPaid:      order.IsPaid,
		Status:      order.Status,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
	}
	if order.IsPaid && order.ShippingAddressID != "" {
		addr, err := s.Store.GetAddress(ctx, order.ShippingAddressID)
		if err != nil {
			// The address was captured at settlement; a read failure here
			// should not hide the paid state from the payer.
			s.Logger.Warn().Err(err).Str("order_id", order.ID).Msg("shipping_address_load_failed")
		} else {
			out.ShippingAddress = &ShippingOutput{
				Name:       addr.Name,
				Street:     addr.Street,
				City:       addr.City,
				State:      addr.State,
				PostalCode: addr.PostalCode,
				Country:    addr.Country,
			}
		}
	}
	return out, nil
}

func (s *Service) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "USD"
}

func (s *Service) returnURL(orderID string) string {
	return strings.TrimRight(s.PublicBaseURL, "/") + "/thank-you?orderId=" + orderID
}

func (s *Service) cancelURL(configurationID string) string {
	return strings.TrimRight(s.PublicBaseURL, "/") + "/configure/preview?id=" + configurationID
}

func (s *Service) count(result string) {
	if obs.CheckoutSessionTotal != nil {
		obs.CheckoutSessionTotal.WithLabelValues(result).Inc()
	}
}
