package qr_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techstore/internal/config"
	"techstore/internal/payment/qr"
)

func testConfig() config.PaymentConfig {
	return config.PaymentConfig{
		MerchantName:    "TechStore",
		MerchantAccount: "techstore@bank",
		MerchantCity:    "Phnom Penh",
		Currency:        "USD",
	}
}

func TestGenerate(t *testing.T) {
	gen := qr.NewGenerator(testConfig())
	expires := time.Now().Add(15 * time.Minute)

	payload, err := gen.Generate(60.00, "MIXED_CART_1a2b3c4d", expires)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(payload.QRImageData, "data:image/png;base64,"))
	assert.Equal(t, "MIXED_CART_1a2b3c4d", payload.ReferenceID)
	assert.InDelta(t, 60.00, payload.Amount, 0.001)
	assert.Equal(t, "USD", payload.Currency)
	assert.Equal(t, expires, payload.ExpiresAt)
}

func TestGenerateRejectsNonPositiveAmount(t *testing.T) {
	gen := qr.NewGenerator(testConfig())

	_, err := gen.Generate(0, "ORDER_1", time.Now())
	require.Error(t, err)

	_, err = gen.Generate(-5, "ORDER_1", time.Now())
	require.Error(t, err)
}

func TestGenerateDistinctReferences(t *testing.T) {
	gen := qr.NewGenerator(testConfig())
	expires := time.Now().Add(15 * time.Minute)

	first, err := gen.Generate(25, "ORDER_1", expires)
	require.NoError(t, err)
	second, err := gen.Generate(25, "ORDER_2", expires)
	require.NoError(t, err)

	assert.NotEqual(t, first.QRImageData, second.QRImageData)
}
