package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"techstore/internal/models"
	"techstore/internal/payment/session"
)

// startRedis spins up a throwaway Redis container for the package.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisContainer.Terminate(ctx) })

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionRoundTrip(t *testing.T) {
	client := startRedis(t)
	store := session.NewStore(client, 15*time.Minute, 24*time.Hour, nil)
	ctx := context.Background()

	created := &models.PaymentSession{
		SessionType: models.PaymentMixed,
		CartItems: []models.CartLine{
			{PreorderID: 11, Price: 40, Type: "preorder"},
			{ProductID: 2, Quantity: 2, Price: 10},
		},
		CustomerInfo: models.CustomerInfo{FirstName: "Demo", Email: "demo@techstore.local"},
		TotalAmount:  60,
	}
	require.NoError(t, store.Create(ctx, created))
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, models.SessionPending, created.Status)

	got, err := store.Get(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, got.SessionID)
	assert.Equal(t, models.PaymentMixed, got.SessionType)
	assert.InDelta(t, 60, got.TotalAmount, 0.001)
	assert.Equal(t, "Demo", got.CustomerInfo.FirstName)
	assert.Len(t, got.CartItems, 2)
}

func TestGetUnknownSession(t *testing.T) {
	client := startRedis(t)
	store := session.NewStore(client, 15*time.Minute, 24*time.Hour, nil)

	_, err := store.Get(context.Background(), "no-such-session")
	require.Error(t, err)
}

func TestUpdateStatusMergesFields(t *testing.T) {
	client := startRedis(t)
	store := session.NewStore(client, 15*time.Minute, 24*time.Hour, nil)
	ctx := context.Background()

	created := &models.PaymentSession{SessionType: models.PaymentRegular, TotalAmount: 50}
	require.NoError(t, store.Create(ctx, created))

	orderID := int64(42)
	updated, err := store.UpdateStatus(ctx, created.SessionID, models.SessionProcessed, func(ps *models.PaymentSession) {
		ps.OrderID = &orderID
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionProcessed, updated.Status)

	got, err := store.Get(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionProcessed, got.Status)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, int64(42), *got.OrderID)
}

func TestExpiredSessionReportedOnGet(t *testing.T) {
	client := startRedis(t)
	// Negative TTL: the payment window is already over at creation.
	store := session.NewStore(client, -1*time.Minute, 24*time.Hour, nil)
	ctx := context.Background()

	created := &models.PaymentSession{SessionType: models.PaymentRegular, TotalAmount: 10}
	require.NoError(t, store.Create(ctx, created))

	got, err := store.Get(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, got.Status)
}

func TestCleanupExpired(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	overdue := session.NewStore(client, -1*time.Minute, 24*time.Hour, nil)
	fresh := session.NewStore(client, 15*time.Minute, 24*time.Hour, nil)

	stale := &models.PaymentSession{SessionType: models.PaymentRegular, TotalAmount: 10}
	require.NoError(t, overdue.Create(ctx, stale))
	alive := &models.PaymentSession{SessionType: models.PaymentRegular, TotalAmount: 20}
	require.NoError(t, fresh.Create(ctx, alive))

	flipped, err := fresh.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)

	got, err := fresh.Get(ctx, stale.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionExpired, got.Status)

	got, err = fresh.Get(ctx, alive.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, got.Status)

	// A second sweep finds nothing left to flip.
	flipped, err = fresh.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, flipped)
}
