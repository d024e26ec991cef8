package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darmiel/authnd/internal/config"
	"github.com/darmiel/authnd/internal/core"
)

const (
	redisEventField  = "event"
	redisReadTimeout = 5 * time.Second
	redisPageSize    = 100
)

var (
	_ core.Auditor     = (*RedisAuditor)(nil)
	_ core.AuditReader = (*RedisAuditor)(nil)
)

// RedisAuditor appends audit events to a redis stream.
type RedisAuditor struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisAuditor connects to redis and verifies the connection with a PING.
func NewRedisAuditor(ctx context.Context, cfg config.RedisConfig) (*RedisAuditor, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisAuditor{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}, nil
}

func (r *RedisAuditor) Log(ctx context.Context, event core.AuditEvent) error {
	values, err := encodeEvent(event)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("appending audit event to stream %s: %w", r.stream, err)
	}
	return nil
}

// GetRecent returns the last limit events of the stream, oldest first.
func (r *RedisAuditor) GetRecent(limit int) ([]core.AuditEvent, error) {
	return r.Find(func(core.AuditEvent) bool { return true }, limit)
}

// Find walks the stream from the newest entry backwards until limit matching
// events are collected. The result is ordered oldest first.
func (r *RedisAuditor) Find(filter func(event core.AuditEvent) bool, limit int) ([]core.AuditEvent, error) {
	if limit <= 0 {
		return []core.AuditEvent{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisReadTimeout)
	defer cancel()

	matches := make([]core.AuditEvent, 0, limit)
	end := "+"
	for len(matches) < limit {
		messages, err := r.client.XRevRangeN(ctx, r.stream, end, "-", redisPageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("reading audit stream %s: %w", r.stream, err)
		}
		for _, msg := range messages {
			event, err := decodeEvent(msg)
			if err != nil {
				return nil, err
			}
			if filter(event) {
				matches = append(matches, event)
				if len(matches) == limit {
					break
				}
			}
		}
		if len(messages) < redisPageSize {
			break
		}
		end = "(" + messages[len(messages)-1].ID
	}

	slices.Reverse(matches)
	return matches, nil
}

func (r *RedisAuditor) Close() error {
	return r.client.Close()
}

func encodeEvent(event core.AuditEvent) (map[string]any, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding audit event: %w", err)
	}
	return map[string]any{
		redisEventField: string(data),
		"action":        event.Action,
		"account":       event.Account,
		"success":       event.Success,
	}, nil
}

func decodeEvent(msg redis.XMessage) (core.AuditEvent, error) {
	var event core.AuditEvent
	raw, ok := msg.Values[redisEventField].(string)
	if !ok {
		return event, fmt.Errorf("stream entry %s has no %q field", msg.ID, redisEventField)
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("decoding stream entry %s: %w", msg.ID, err)
	}
	return event, nil
}
