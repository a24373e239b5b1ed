package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
)

// Sends a gateway webhook to a running bot, signed the way the gateway
// would sign it. Useful to walk an order through delivery locally.
func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Bot base URL")
	gateway := flag.String("gateway", payment.AbacatePay, "Gateway (mercadopago, abacatepay)")
	paymentID := flag.String("payment-id", "", "Gateway payment ID")
	orderID := flag.String("order", "", "Order ID sent as external_id (abacatepay)")
	status := flag.String("status", "PAID", "Payment status (abacatepay)")
	secret := flag.String("secret", os.Getenv("MERCADOPAGO_WEBHOOK_SECRET"), "Mercado Pago webhook secret")
	dryRun := flag.Bool("dry-run", false, "Print the request without sending it")

	flag.Parse()

	if *paymentID == "" {
		fmt.Fprintln(os.Stderr, "Error: -payment-id is required")
		os.Exit(1)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	var payload interface{}
	switch *gateway {
	case payment.MercadoPago:
		payload = map[string]interface{}{
			"type":   "payment",
			"action": "payment.updated",
			"data":   map[string]string{"id": *paymentID},
		}
		if *secret != "" {
			requestID := uuid.NewString()
			headers.Set("x-request-id", requestID)
			headers.Set("x-signature", payment.SignMercadoPagoWebhook(*secret, *paymentID, requestID, time.Now().Unix()))
		}
	case payment.AbacatePay:
		if *orderID == "" {
			fmt.Fprintln(os.Stderr, "Error: -order is required for abacatepay")
			os.Exit(1)
		}
		payload = map[string]string{
			"id":          *paymentID,
			"status":      *status,
			"external_id": *orderID,
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported gateway %q\n", *gateway)
		os.Exit(1)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	target := strings.TrimRight(*baseURL, "/") + "/webhook/" + *gateway
	for k := range headers {
		fmt.Printf("%s: %s\n", k, headers.Get(k))
	}
	fmt.Printf("Body: %s\n", body)

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", target)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header = headers

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", respBody)

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
