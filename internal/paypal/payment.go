package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-caseshop/internal/pricing"
)

// ApprovalRel is the link relation PayPal uses for the payer-facing approval
// page in a payment-create response.
const ApprovalRel = "approval_url"

// Link is a HATEOAS link from a PayPal response.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Payment is the subset of the payment-create response the checkout flow
// consumes.
type Payment struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Links []Link `json:"links"`
}

// ApprovalURL returns the href of the approval link, if present.
func (p Payment) ApprovalURL() (string, bool) {
	for _, link := range p.Links {
		if link.Rel == ApprovalRel && strings.TrimSpace(link.Href) != "" {
			return link.Href, true
		}
	}
	return "", false
}

// CreatePaymentParams describes a single-item sale payment.
type CreatePaymentParams struct {
	// AmountCents is the total charge in minor units.
	AmountCents int64
	Currency    string
	Description string
	ItemName    string
	ItemSKU     string
	// InvoiceNumber correlates the sale back to an order; it round-trips on
	// the completion webhook as resource.invoice_number.
	InvoiceNumber string
	// Custom round-trips as resource.custom on sale events. Carries the JSON
	// order correlation payload.
	Custom    string
	ReturnURL string
	CancelURL string
}

type paymentAmount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type paymentItem struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type paymentTransaction struct {
	ItemList struct {
		Items []paymentItem `json:"items"`
	} `json:"item_list"`
	Amount        paymentAmount `json:"amount"`
	Description   string        `json:"description,omitempty"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	Custom        string        `json:"custom,omitempty"`
}

type createPaymentRequest struct {
	Intent string `json:"intent"`
	Payer  struct {
		PaymentMethod string `json:"payment_method"`
	} `json:"payer"`
	RedirectURLs struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"redirect_urls"`
	Transactions []paymentTransaction `json:"transactions"`
}

// CreatePayment opens a "sale" payment with PayPal and returns the response,
// including the approval link the payer must be redirected to.
func (c *Client) CreatePayment(ctx context.Context, params CreatePaymentParams) (Payment, error) {
	if params.AmountCents <= 0 {
		return Payment{}, fmt.Errorf("paypal: invalid amount %d", params.AmountCents)
	}
	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = "USD"
	}
	total := pricing.Decimal(params.AmountCents)

	var req createPaymentRequest
	req.Intent = "sale"
	req.Payer.PaymentMethod = "paypal"
	req.RedirectURLs.ReturnURL = params.ReturnURL
	req.RedirectURLs.CancelURL = params.CancelURL
	req.Transactions = make([]paymentTransaction, 1)
	req.Transactions[0].ItemList.Items = []paymentItem{{
		Name:     params.ItemName,
		SKU:      params.ItemSKU,
		Price:    total,
		Currency: currency,
		Quantity: 1,
	}}
	req.Transactions[0].Amount = paymentAmount{Currency: currency, Total: total}
	req.Transactions[0].Description = params.Description
	req.Transactions[0].InvoiceNumber = params.InvoiceNumber
	req.Transactions[0].Custom = params.Custom

	payload, err := json.Marshal(req)
	if err != nil {
		return Payment{}, fmt.Errorf("paypal: encode payment request: %w", err)
	}
	var payment Payment
	if err := c.doJSON(ctx, "create_payment", "/v1/payments/payment", payload, &payment); err != nil {
		return Payment{}, err
	}
	return payment, nil
}
