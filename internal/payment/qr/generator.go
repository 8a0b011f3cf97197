// Package qr renders the scannable payment code shown at checkout.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"techstore/internal/config"
	"techstore/internal/models"
)

type Generator struct {
	cfg config.PaymentConfig
}

func NewGenerator(cfg config.PaymentConfig) *Generator {
	return &Generator{cfg: cfg}
}

// paymentRequest is the JSON encoded into the QR image. The customer's
// banking app reads merchant details, the amount and the reference; our
// confirmation flow only ever consumes the reference id.
type paymentRequest struct {
	Merchant  string  `json:"merchant"`
	Account   string  `json:"account"`
	City      string  `json:"city"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
	ExpiresAt string  `json:"expires_at"`
}

// Generate encodes a payment request for the given amount and reference into
// a PNG QR code and returns it as a data URI alongside the bookkeeping
// fields.
func (g *Generator) Generate(amount float64, reference string, expiresAt time.Time) (*models.QRPayload, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %.2f", amount)
	}

	req := paymentRequest{
		Merchant:  g.cfg.MerchantName,
		Account:   g.cfg.MerchantAccount,
		City:      g.cfg.MerchantCity,
		Amount:    amount,
		Currency:  g.cfg.Currency,
		Reference: reference,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode payment QR: %w", err)
	}

	return &models.QRPayload{
		QRImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ReferenceID: reference,
		Amount:      amount,
		Currency:    g.cfg.Currency,
		ExpiresAt:   expiresAt,
	}, nil
}
