package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// AbacatePayClient talks to the Abacate Pay PIX API. It supports PIX only.
type AbacatePayClient struct {
	api apiClient
}

func NewAbacatePayClient(baseURL, apiKey string, httpClient *http.Client) *AbacatePayClient {
	return &AbacatePayClient{
		api: apiClient{gateway: AbacatePay, baseURL: baseURL, token: apiKey, http: httpClient},
	}
}

func (c *AbacatePayClient) Name() string { return AbacatePay }

type abacatePixRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	ExternalID  string  `json:"external_id"`
	PayerName   string  `json:"payer_name"`
	PayerEmail  string  `json:"payer_email"`
	PayerCPF    string  `json:"payer_cpf"`
	ExpiresAt   string  `json:"expires_at"`
	WebhookURL  string  `json:"webhook_url"`
}

type abacatePixResponse struct {
	ID           string          `json:"id"`
	QRCode       string          `json:"qr_code"`
	QRCodeBase64 string          `json:"qr_code_base64"`
	PixCopyPaste string          `json:"pix_copy_paste"`
	ExpiresAt    string          `json:"expires_at"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	ExternalID   string          `json:"external_id"`
}

func (c *AbacatePayClient) CreatePixPayment(ctx context.Context, req *PixRequest) (*PixPayment, error) {
	name := req.PayerName
	if name == "" {
		name = "Cliente"
	}

	body := abacatePixRequest{
		Amount:      req.Amount.InexactFloat64(),
		Description: req.Description,
		ExternalID:  req.ExternalID,
		PayerName:   name,
		PayerEmail:  req.PayerEmail,
		PayerCPF:    req.PayerCPF,
		ExpiresAt:   req.ExpiresAt.UTC().Format(time.RFC3339),
		WebhookURL:  req.WebhookURL,
	}

	var resp abacatePixResponse
	if err := c.api.do(ctx, http.MethodPost, "/pix/create", body, &resp, nil); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &APIError{Gateway: AbacatePay, StatusCode: http.StatusOK, Message: "response without payment id"}
	}

	pix := &PixPayment{
		PaymentID:    resp.ID,
		QRCode:       resp.QRCode,
		QRCodeBase64: resp.QRCodeBase64,
		CopyPaste:    resp.PixCopyPaste,
		Status:       resp.Status,
		ExpiresAt:    req.ExpiresAt,
	}
	if pix.CopyPaste == "" {
		pix.CopyPaste = resp.QRCode
	}
	if t, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
		pix.ExpiresAt = t
	}
	return pix, nil
}

func (c *AbacatePayClient) CreateCardPayment(context.Context, *CardRequest) (*CardPayment, error) {
	return nil, fmt.Errorf("%s: %w", AbacatePay, ErrUnsupportedMethod)
}

func (c *AbacatePayClient) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var resp abacatePixResponse
	if err := c.api.do(ctx, http.MethodGet, "/pix/"+url.PathEscape(paymentID), nil, &resp, nil); err != nil {
		return nil, err
	}

	status, _ := NormalizeStatus(AbacatePay, resp.Status)
	return &PaymentStatus{
		PaymentID:         paymentID,
		RawStatus:         resp.Status,
		Status:            status,
		Amount:            resp.Amount,
		ExternalReference: resp.ExternalID,
	}, nil
}

func (c *AbacatePayClient) Refund(context.Context, string) error {
	return fmt.Errorf("%s refunds: %w", AbacatePay, ErrUnsupportedMethod)
}

func (c *AbacatePayClient) TestConnection(ctx context.Context) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	if err := c.api.do(ctx, http.MethodGet, "/account", nil, &resp, nil); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "Conta: Configurada", nil
	}
	return "Conta: " + resp.Name, nil
}

// VerifyWebhook is a no-op: Abacate Pay deliveries carry no signature.
func (c *AbacatePayClient) VerifyWebhook(http.Header, *Notification) error {
	return nil
}

var _ Gateway = (*AbacatePayClient)(nil)
