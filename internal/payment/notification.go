package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Notification is a webhook body reduced to the fields the order lifecycle
// needs. When NeedsLookup is set the body only identified the payment and the
// status must be fetched from the gateway.
type Notification struct {
	Gateway     string
	Topic       string
	PaymentID   string
	ExternalID  string
	RawStatus   string
	Status      Status
	NeedsLookup bool
	Raw         []byte
}

// IsPayment reports whether the notification concerns a payment at all.
func (n *Notification) IsPayment() bool {
	return n.Topic == "" || n.Topic == "payment"
}

type mercadoPagoWebhook struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

type abacatePayWebhook struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ExternalID string `json:"external_id"`
}

// ParseNotification normalizes a raw webhook body for gateway.
func ParseNotification(gateway string, body []byte) (*Notification, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	switch gateway {
	case MercadoPago:
		return parseMercadoPago(body)
	case AbacatePay:
		return parseAbacatePay(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, gateway)
	}
}

func parseMercadoPago(body []byte) (*Notification, error) {
	var w mercadoPagoWebhook
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	topic := w.Type
	if topic == "" {
		topic = w.Topic
	}

	id := strings.Trim(string(w.Data.ID), `"`)

	n := &Notification{Gateway: MercadoPago, Topic: topic, PaymentID: id, NeedsLookup: true, Raw: body}
	if n.IsPayment() && id == "" {
		return nil, fmt.Errorf("%w: missing data.id", ErrMalformedPayload)
	}
	return n, nil
}

func parseAbacatePay(body []byte) (*Notification, error) {
	var w abacatePayWebhook
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedPayload)
	}

	status, _ := NormalizeStatus(AbacatePay, w.Status)
	return &Notification{
		Gateway:    AbacatePay,
		PaymentID:  w.ID,
		ExternalID: w.ExternalID,
		RawStatus:  w.Status,
		Status:     status,
		Raw:        body,
	}, nil
}

// NormalizeStatus maps a provider status to Status. Unknown values come back
// as StatusPending with known=false.
func NormalizeStatus(gateway, raw string) (status Status, known bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))

	var table map[string]Status
	switch gateway {
	case MercadoPago:
		table = mercadoPagoStatuses
	case AbacatePay:
		table = abacatePayStatuses
	}

	if s, ok := table[raw]; ok {
		return s, true
	}
	return StatusPending, false
}

var mercadoPagoStatuses = map[string]Status{
	"approved":     StatusApproved,
	"authorized":   StatusPending,
	"pending":      StatusPending,
	"in_process":   StatusPending,
	"in_mediation": StatusPending,
	"rejected":     StatusRejected,
	"cancelled":    StatusCancelled,
	"refunded":     StatusCancelled,
	"charged_back": StatusCancelled,
}

var abacatePayStatuses = map[string]Status{
	"paid":      StatusApproved,
	"approved":  StatusApproved,
	"completed": StatusApproved,
	"pending":   StatusPending,
	"waiting":   StatusPending,
	"failed":    StatusRejected,
	"rejected":  StatusRejected,
	"expired":   StatusCancelled,
	"cancelled": StatusCancelled,
	"refunded":  StatusCancelled,
}
