package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const mercadoPagoTimeLayout = "2006-01-02T15:04:05.000-07:00"

// MercadoPagoClient talks to the Mercado Pago payments API.
type MercadoPagoClient struct {
	api           apiClient
	webhookSecret string
}

func NewMercadoPagoClient(baseURL, accessToken, webhookSecret string, httpClient *http.Client) *MercadoPagoClient {
	return &MercadoPagoClient{
		api:           apiClient{gateway: MercadoPago, baseURL: baseURL, token: accessToken, http: httpClient},
		webhookSecret: webhookSecret,
	}
}

func (c *MercadoPagoClient) Name() string { return MercadoPago }

type mpIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type mpPayer struct {
	Email          string            `json:"email"`
	FirstName      string            `json:"first_name,omitempty"`
	Identification *mpIdentification `json:"identification,omitempty"`
}

type mpPaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Token             string  `json:"token,omitempty"`
	Installments      int     `json:"installments,omitempty"`
	IssuerID          string  `json:"issuer_id,omitempty"`
	Payer             mpPayer `json:"payer"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	DateOfExpiration  string  `json:"date_of_expiration,omitempty"`
}

type mpPaymentResponse struct {
	ID                 int64   `json:"id"`
	Status             string  `json:"status"`
	StatusDetail       string  `json:"status_detail"`
	TransactionAmount  float64 `json:"transaction_amount"`
	ExternalReference  string  `json:"external_reference"`
	DateOfExpiration   string  `json:"date_of_expiration"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (r *mpPaymentResponse) paymentID() string {
	return fmt.Sprintf("%d", r.ID)
}

func (c *MercadoPagoClient) payer(req *PixRequest) mpPayer {
	p := mpPayer{Email: req.PayerEmail, FirstName: req.PayerName}
	if req.PayerCPF != "" {
		p.Identification = &mpIdentification{Type: "CPF", Number: req.PayerCPF}
	}
	return p
}

func (c *MercadoPagoClient) CreatePixPayment(ctx context.Context, req *PixRequest) (*PixPayment, error) {
	body := mpPaymentRequest{
		TransactionAmount: req.Amount.InexactFloat64(),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer:             c.payer(req),
		ExternalReference: req.ExternalID,
		NotificationURL:   req.WebhookURL,
	}
	if !req.ExpiresAt.IsZero() {
		body.DateOfExpiration = req.ExpiresAt.Format(mercadoPagoTimeLayout)
	}

	var resp mpPaymentResponse
	headers := map[string]string{"X-Idempotency-Key": "pix-" + req.ExternalID}
	if err := c.api.do(ctx, http.MethodPost, "/v1/payments", body, &resp, headers); err != nil {
		return nil, err
	}

	pix := &PixPayment{
		PaymentID:    resp.paymentID(),
		QRCode:       resp.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: resp.PointOfInteraction.TransactionData.QRCodeBase64,
		CopyPaste:    resp.PointOfInteraction.TransactionData.QRCode,
		Status:       resp.Status,
		ExpiresAt:    req.ExpiresAt,
	}
	if t, err := time.Parse(mercadoPagoTimeLayout, resp.DateOfExpiration); err == nil {
		pix.ExpiresAt = t
	}
	return pix, nil
}

func (c *MercadoPagoClient) CreateCardPayment(ctx context.Context, req *CardRequest) (*CardPayment, error) {
	if req.Card.Token == "" {
		return nil, fmt.Errorf("%s: card token is required", MercadoPago)
	}
	installments := req.Card.Installments
	if installments < 1 {
		installments = 1
	}

	body := mpPaymentRequest{
		TransactionAmount: req.Amount.InexactFloat64(),
		Description:       req.Description,
		PaymentMethodID:   req.Card.PaymentMethodID,
		Token:             req.Card.Token,
		Installments:      installments,
		IssuerID:          req.Card.IssuerID,
		Payer:             c.payer(&req.PixRequest),
		ExternalReference: req.ExternalID,
		NotificationURL:   req.WebhookURL,
	}

	var resp mpPaymentResponse
	headers := map[string]string{"X-Idempotency-Key": "card-" + req.ExternalID}
	if err := c.api.do(ctx, http.MethodPost, "/v1/payments", body, &resp, headers); err != nil {
		return nil, err
	}

	return &CardPayment{PaymentID: resp.paymentID(), Status: resp.Status, StatusDetail: resp.StatusDetail}, nil
}

func (c *MercadoPagoClient) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var resp mpPaymentResponse
	if err := c.api.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &resp, nil); err != nil {
		return nil, err
	}

	status, _ := NormalizeStatus(MercadoPago, resp.Status)
	return &PaymentStatus{
		PaymentID:         paymentID,
		RawStatus:         resp.Status,
		Status:            status,
		Amount:            decimal.NewFromFloat(resp.TransactionAmount),
		ExternalReference: resp.ExternalReference,
	}, nil
}

func (c *MercadoPagoClient) Refund(ctx context.Context, paymentID string) error {
	path := "/v1/payments/" + url.PathEscape(paymentID) + "/refunds"
	headers := map[string]string{"X-Idempotency-Key": "refund-" + paymentID}
	return c.api.do(ctx, http.MethodPost, path, struct{}{}, nil, headers)
}

func (c *MercadoPagoClient) TestConnection(ctx context.Context) (string, error) {
	var resp struct {
		SiteID string `json:"site_id"`
	}
	if err := c.api.do(ctx, http.MethodGet, "/v1/account/settings", nil, &resp, nil); err != nil {
		return "", err
	}
	if resp.SiteID == "" {
		return "Conta Mercado Pago validada", nil
	}
	return "Conta Mercado Pago validada (" + resp.SiteID + ")", nil
}

// VerifyWebhook checks the x-signature header against the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func (c *MercadoPagoClient) VerifyWebhook(headers http.Header, n *Notification) error {
	if c.webhookSecret == "" {
		return nil
	}

	ts, v1 := parseSignatureHeader(headers.Get("x-signature"))
	if ts == "" || v1 == "" {
		return fmt.Errorf("%w: missing x-signature", ErrInvalidSignature)
	}

	manifest := "id:" + strings.ToLower(n.PaymentID) + ";"
	if rid := headers.Get("x-request-id"); rid != "" {
		manifest += "request-id:" + rid + ";"
	}
	manifest += "ts:" + ts + ";"

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return ErrInvalidSignature
	}
	return nil
}

func parseSignatureHeader(h string) (ts, v1 string) {
	for _, part := range strings.Split(h, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	return ts, v1
}

// SignMercadoPagoWebhook builds the x-signature header value for a delivery.
// Used by tests and the local webhook simulator.
func SignMercadoPagoWebhook(secret, dataID, requestID string, ts int64) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%d;", strings.ToLower(dataID), requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

var _ Gateway = (*MercadoPagoClient)(nil)
