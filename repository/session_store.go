package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payment-challenge-service/models"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no session exists for the given id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the keyed session-blob accessor. The store owns expiry;
// the core never deletes. Writes are last-write-wins: the blob carries no
// optimistic concurrency token.
type SessionStore interface {
	GetPaymentSession(ctx context.Context, sessionID string) (*models.StoredPaymentSession, error)
	CreatePaymentSession(ctx context.Context, session *models.StoredPaymentSession) error
	UpdatePaymentSession(ctx context.Context, session *models.StoredPaymentSession) error

	GetInstrumentSession(ctx context.Context, instrumentID string) (*models.PaymentInstrumentSession, error)
	UpsertInstrumentSession(ctx context.Context, instrumentID string, session *models.PaymentInstrumentSession) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a redis-backed SessionStore with the given
// blob TTL.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("psession:%s", sessionID)
}

func instrumentSessionKey(instrumentID string) string {
	return fmt.Sprintf("pisession:%s", instrumentID)
}

func (r *redisSessionStore) GetPaymentSession(ctx context.Context, sessionID string) (*models.StoredPaymentSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.StoredPaymentSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisSessionStore) CreatePaymentSession(ctx context.Context, session *models.StoredPaymentSession) error {
	session.CreatedAt = time.Now().UTC()
	session.UpdatedAt = session.CreatedAt
	return r.write(ctx, sessionKey(session.ID), session)
}

func (r *redisSessionStore) UpdatePaymentSession(ctx context.Context, session *models.StoredPaymentSession) error {
	session.UpdatedAt = time.Now().UTC()
	return r.write(ctx, sessionKey(session.ID), session)
}

func (r *redisSessionStore) GetInstrumentSession(ctx context.Context, instrumentID string) (*models.PaymentInstrumentSession, error) {
	data, err := r.client.Get(ctx, instrumentSessionKey(instrumentID)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.PaymentInstrumentSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *redisSessionStore) UpsertInstrumentSession(ctx context.Context, instrumentID string, session *models.PaymentInstrumentSession) error {
	session.UpdatedAt = time.Now().UTC()
	return r.write(ctx, instrumentSessionKey(instrumentID), session)
}

func (r *redisSessionStore) write(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}
