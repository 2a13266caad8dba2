package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SessionStore persists conversation sessions between turns.
type SessionStore interface {
	// Load returns the session, or (nil, nil) when none exists.
	Load(ctx context.Context, id string) (*Session, error)
	// Save persists the session, failing with ErrSessionConflict when it was
	// modified since this copy was loaded.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions in Redis with a sliding TTL. Saves are
// guarded with a Watch transaction keyed on the session version so two
// instances handling the same user cannot silently overwrite each other.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore builds the store. ttl bounds how long an untouched
// session survives.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("dialog: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("assistant.internal.dialog.sessions")
	}
	return &RedisSessionStore{redis: client, ttl: ttl, tracer: tracer}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "dialog.load_session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: failed to decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "dialog.save_session")
	defer span.End()

	key := sessionKey(session.ID)
	expected := session.Version

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("dialog: failed to read current session: %w", err)
		}
		if err == nil {
			var current Session
			if decodeErr := json.Unmarshal(data, &current); decodeErr == nil && current.Version != expected {
				return ErrSessionConflict
			}
		}

		session.Version = expected + 1
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("dialog: failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		err = ErrSessionConflict
	}
	if err != nil {
		if errors.Is(err, ErrSessionConflict) {
			// Restore so a retried turn starts from the reloaded version.
			session.Version = expected
			span.RecordError(err)
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("dialog: failed to persist session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "dialog.delete_session")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: failed to delete session: %w", err)
	}
	return nil
}
