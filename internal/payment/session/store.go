// Package session stores in-flight payment sessions in Redis. A session is
// a short-lived staging area for one checkout attempt; the database never
// sees it until confirmation reconciles it into order and pre-order rows.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"techstore/internal/errs"
	"techstore/internal/logger"
	"techstore/internal/models"
	"techstore/internal/utils"
)

const keyPrefix = "payment_session:"

// Store keeps sessions for Retention (so overdue ones can still be reported
// as expired) while TTL bounds the logical payment window stamped into each
// session.
type Store struct {
	Client    *redis.Client
	TTL       time.Duration
	Retention time.Duration
	Log       *logger.Logger
}

func NewStore(client *redis.Client, ttl, retention time.Duration, log *logger.Logger) *Store {
	return &Store{Client: client, TTL: ttl, Retention: retention, Log: log}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Create stamps a fresh session id and the payment window, then persists.
func (s *Store) Create(ctx context.Context, session *models.PaymentSession) error {
	if session.SessionID == "" {
		session.SessionID = utils.NewSessionID()
	}
	now := time.Now()
	session.Status = models.SessionPending
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.TTL)
	return s.save(ctx, session)
}

func (s *Store) save(ctx context.Context, session *models.PaymentSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal payment session: %w", err)
	}
	if err := s.Client.Set(ctx, sessionKey(session.SessionID), data, s.Retention).Err(); err != nil {
		return fmt.Errorf("store payment session: %w", err)
	}
	if s.Log != nil {
		s.Log.LogPayment("STORE", session.SessionID,
			fmt.Sprintf("%s session, $%.2f, status %s", session.SessionType, session.TotalAmount, session.Status))
	}
	return nil
}

// Update persists changes to an already-created session.
func (s *Store) Update(ctx context.Context, session *models.PaymentSession) error {
	return s.save(ctx, session)
}

// Get loads a session. A pending session whose payment window has passed is
// flagged expired in the store before being returned, so callers always see
// the effective status.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	data, err := s.Client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.NotFound("payment session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment session: %w", err)
	}

	var session models.PaymentSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal payment session: %w", err)
	}

	if session.Status == models.SessionPending && session.Expired(time.Now()) {
		session.Status = models.SessionExpired
		if err := s.save(ctx, &session); err != nil {
			return nil, err
		}
	}
	return &session, nil
}

// UpdateStatus transitions a session and merges any extra fields set on
// update (order id, pre-order ids) via the mutate callback.
func (s *Store) UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, mutate func(*models.PaymentSession)) (*models.PaymentSession, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Status = status
	if mutate != nil {
		mutate(session)
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a session outright. Normal flow relies on retention expiry
// instead; this backs the explicit cancel-and-forget path.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.Client.Del(ctx, sessionKey(sessionID)).Err()
}

// CleanupExpired sweeps the keyspace and marks overdue pending sessions as
// expired. Returns how many sessions were flipped. Redis retention still
// garbage-collects the keys afterwards.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	var flipped int
	now := time.Now()

	iter := s.Client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.Client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return flipped, err
		}

		var session models.PaymentSession
		if err := json.Unmarshal(data, &session); err != nil {
			// Skip unreadable payloads rather than wedging the sweep.
			continue
		}
		if session.Status != models.SessionPending || !session.Expired(now) {
			continue
		}

		session.Status = models.SessionExpired
		if err := s.save(ctx, &session); err != nil {
			return flipped, err
		}
		flipped++
	}
	if err := iter.Err(); err != nil {
		return flipped, err
	}

	if flipped > 0 && s.Log != nil {
		s.Log.LogPayment("CLEANUP", "sweep", fmt.Sprintf("marked %d session(s) expired", flipped))
	}
	return flipped, nil
}
