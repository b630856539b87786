// Package notify delivers order confirmation emails. Delivery is best
// effort: the webhook handler enqueues, the worker sends, and neither path
// ever blocks or fails a settlement.
package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/noah-isme/backend-caseshop/internal/payment"
	"github.com/noah-isme/backend-caseshop/internal/pricing"
)

// Subject is the order confirmation subject line.
const Subject = "Thanks for your order!"

// RenderConfirmation builds the confirmation email body for a settled order.
func RenderConfirmation(n payment.Notification) string {
	var b strings.Builder
	b.WriteString("<h1>Thanks for your order!</h1>")
	b.WriteString("<p>Your custom case is on its way to production.</p>")
	fmt.Fprintf(&b, "<p>Order number: <strong>%s</strong></p>", html.EscapeString(n.OrderID))
	fmt.Fprintf(&b, "<p>Total: <strong>%s</strong></p>", pricing.Format(pricing.Money(n.AmountCents)))

	addr := n.ShippingAddress
	if addr.Street != "" {
		b.WriteString("<p>Shipping to:<br>")
		lines := []string{addr.Name, addr.Street, strings.TrimSpace(addr.City + " " + addr.PostalCode), addr.Country}
		parts := make([]string, 0, len(lines))
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				parts = append(parts, html.EscapeString(line))
			}
		}
		b.WriteString(strings.Join(parts, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
