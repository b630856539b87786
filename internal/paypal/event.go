package paypal

import (
	"encoding/json"
	"errors"
	"strings"
)

// Webhook event types this service acts on. Anything else is acknowledged and
// ignored.
const (
	EventSaleCompleted = "PAYMENT.SALE.COMPLETED"
	EventOrderApproved = "CHECKOUT.ORDER.APPROVED"
)

// ErrMalformedEvent marks a webhook body that passed signature verification
// but cannot be decoded into the expected envelope shape.
var ErrMalformedEvent = errors.New("paypal: malformed webhook event")

// EventKind classifies a webhook event by what the settlement flow should do
// with it.
type EventKind int

const (
	KindIgnored EventKind = iota
	KindSaleCompleted
	KindOrderApproved
)

// WebhookEvent is the outer webhook envelope. Resource is kept raw because
// its shape depends on EventType.
type WebhookEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	CreateTime string          `json:"create_time"`
	Summary    string          `json:"summary"`
	Resource   json.RawMessage `json:"resource"`
}

// Kind maps the event type onto the settlement action.
func (e WebhookEvent) Kind() EventKind {
	switch e.EventType {
	case EventSaleCompleted:
		return KindSaleCompleted
	case EventOrderApproved:
		return KindOrderApproved
	default:
		return KindIgnored
	}
}

// ParseEvent decodes a verified webhook body into the envelope. The body must
// carry at least an event id and type.
func ParseEvent(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, ErrMalformedEvent
	}
	if strings.TrimSpace(ev.ID) == "" || strings.TrimSpace(ev.EventType) == "" {
		return WebhookEvent{}, ErrMalformedEvent
	}
	return ev, nil
}

// EventAddress is the postal address shape carried on sale resources.
type EventAddress struct {
	RecipientName string `json:"recipient_name"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
	Phone         string `json:"phone"`
}

// IsZero reports whether no address fields are populated.
func (a EventAddress) IsZero() bool {
	return a == EventAddress{}
}

// SaleResource is the resource payload of a PAYMENT.SALE.COMPLETED event.
type SaleResource struct {
	ID            string       `json:"id"`
	State         string       `json:"state"`
	InvoiceNumber string       `json:"invoice_number"`
	Custom        string       `json:"custom"`
	ShippingAddr  EventAddress `json:"shipping_address"`
	BillingAddr   EventAddress `json:"billing_address"`
	Payer         struct {
		PayerInfo struct {
			Email string `json:"email"`
		} `json:"payer_info"`
	} `json:"payer"`
}

// customPayload is the JSON carried in the payment's custom field at checkout
// time.
type customPayload struct {
	OrderID string `json:"orderId"`
}

// CorrelationID returns the order id the sale settles: the invoice number
// when set, otherwise the orderId from the custom payload.
func (r SaleResource) CorrelationID() (string, bool) {
	if id := strings.TrimSpace(r.InvoiceNumber); id != "" {
		return id, true
	}
	return orderIDFromCustom(r.Custom)
}

// SaleFromEvent decodes the sale resource out of a sale-completed envelope.
func SaleFromEvent(ev WebhookEvent) (SaleResource, error) {
	var sale SaleResource
	if err := json.Unmarshal(ev.Resource, &sale); err != nil {
		return SaleResource{}, ErrMalformedEvent
	}
	return sale, nil
}

// OrderResource is the resource payload of a CHECKOUT.ORDER.APPROVED event
// (v2 orders shape).
type OrderResource struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID    string `json:"custom_id"`
		InvoiceID   string `json:"invoice_id"`
		ReferenceID string `json:"reference_id"`
		Shipping    struct {
			Name struct {
				FullName string `json:"full_name"`
			} `json:"name"`
			Address struct {
				AddressLine1 string `json:"address_line_1"`
				AddressLine2 string `json:"address_line_2"`
				AdminArea2   string `json:"admin_area_2"`
				AdminArea1   string `json:"admin_area_1"`
				PostalCode   string `json:"postal_code"`
				CountryCode  string `json:"country_code"`
			} `json:"address"`
		} `json:"shipping"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// CorrelationID returns the order id from the first purchase unit: invoice id
// when set, otherwise the orderId from the custom_id payload.
func (r OrderResource) CorrelationID() (string, bool) {
	if len(r.PurchaseUnits) == 0 {
		return "", false
	}
	unit := r.PurchaseUnits[0]
	if id := strings.TrimSpace(unit.InvoiceID); id != "" {
		return id, true
	}
	return orderIDFromCustom(unit.CustomID)
}

// ShippingAddress flattens the first purchase unit's shipping block into the
// common address shape. The v2 orders payload has no phone or separate
// billing address.
func (r OrderResource) ShippingAddress() EventAddress {
	if len(r.PurchaseUnits) == 0 {
		return EventAddress{}
	}
	unit := r.PurchaseUnits[0]
	return EventAddress{
		RecipientName: unit.Shipping.Name.FullName,
		Line1:         unit.Shipping.Address.AddressLine1,
		Line2:         unit.Shipping.Address.AddressLine2,
		City:          unit.Shipping.Address.AdminArea2,
		State:         unit.Shipping.Address.AdminArea1,
		PostalCode:    unit.Shipping.Address.PostalCode,
		CountryCode:   unit.Shipping.Address.CountryCode,
	}
}

// OrderFromEvent decodes the order resource out of an order-approved envelope.
func OrderFromEvent(ev WebhookEvent) (OrderResource, error) {
	var order OrderResource
	if err := json.Unmarshal(ev.Resource, &order); err != nil {
		return OrderResource{}, ErrMalformedEvent
	}
	return order, nil
}

// EncodeCustom builds the custom payload attached to payments at checkout so
// completion webhooks can be correlated back to an order.
func EncodeCustom(orderID string) string {
	raw, _ := json.Marshal(customPayload{OrderID: orderID})
	return string(raw)
}

func orderIDFromCustom(custom string) (string, bool) {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return "", false
	}
	var payload customPayload
	if err := json.Unmarshal([]byte(custom), &payload); err == nil {
		if id := strings.TrimSpace(payload.OrderID); id != "" {
			return id, true
		}
		return "", false
	}
	// Some integrations put the bare order id in custom.
	return custom, true
}
