package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Transmission header names PayPal attaches to every webhook delivery.
const (
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
)

// TransmissionHeaders carries the webhook signature metadata.
type TransmissionHeaders struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
}

// HeadersFromRequest extracts the five transmission headers. The second
// return value is false when any of them is missing or blank.
func HeadersFromRequest(r *http.Request) (TransmissionHeaders, bool) {
	h := TransmissionHeaders{
		AuthAlgo:         strings.TrimSpace(r.Header.Get(HeaderAuthAlgo)),
		CertURL:          strings.TrimSpace(r.Header.Get(HeaderCertURL)),
		TransmissionID:   strings.TrimSpace(r.Header.Get(HeaderTransmissionID)),
		TransmissionSig:  strings.TrimSpace(r.Header.Get(HeaderTransmissionSig)),
		TransmissionTime: strings.TrimSpace(r.Header.Get(HeaderTransmissionTime)),
	}
	return h, h.complete()
}

func (h TransmissionHeaders) complete() bool {
	return h.AuthAlgo != "" && h.CertURL != "" && h.TransmissionID != "" &&
		h.TransmissionSig != "" && h.TransmissionTime != ""
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhookSignature asks PayPal whether a webhook delivery is authentic.
// The raw body is embedded verbatim: the signature covers the exact bytes
// received, so the event must never be re-serialised before verification.
//
// The result is false on any transport error, malformed response or
// non-success status. The caller cannot distinguish an invalid signature from
// an unverifiable one; both fail closed.
func (c *Client) VerifyWebhookSignature(ctx context.Context, hdrs TransmissionHeaders, rawBody []byte) bool {
	if !hdrs.complete() || len(rawBody) == 0 || !json.Valid(rawBody) {
		return false
	}
	payload, err := json.Marshal(verifyRequest{
		AuthAlgo:         hdrs.AuthAlgo,
		CertURL:          hdrs.CertURL,
		TransmissionID:   hdrs.TransmissionID,
		TransmissionSig:  hdrs.TransmissionSig,
		TransmissionTime: hdrs.TransmissionTime,
		WebhookID:        c.webhookID,
		WebhookEvent:     json.RawMessage(rawBody),
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("paypal_verify_encode_failed")
		return false
	}
	var parsed verifyResponse
	if err := c.doJSON(ctx, "verify_webhook_signature", "/v1/notifications/verify-webhook-signature", payload, &parsed); err != nil {
		c.logger.Warn().Err(err).Str("transmission_id", hdrs.TransmissionID).Msg("paypal_verify_unreachable")
		return false
	}
	return parsed.VerificationStatus == "SUCCESS"
}
