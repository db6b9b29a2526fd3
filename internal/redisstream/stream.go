// Package redisstream wraps the Redis Streams calls the pipeline needs
// (XGROUP CREATE, XREADGROUP, XAUTOCLAIM, XACK, XTRIM) on top of
// github.com/redis/go-redis/v9, plus the boot-time pending-message drain
// every consumer group runs before it joins the live ">" read.
package redisstream

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// FieldKey is the single hash field every message in this system carries:
// a JSON payload keyed under one well-known name so streams stay one field
// wide and easy to trim/replay.
const FieldKey = "payload"

// EnsureGroup creates group on stream at the "0" offset (MKSTREAM), treating
// BUSYGROUP (group already exists) as success.
func EnsureGroup(ctx context.Context, rdb *redis.Client, stream, group string) error {
	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Message is one decoded stream entry awaiting XAck.
type Message struct {
	ID      string
	Payload string
}

// ClaimPending runs XPENDING then XAUTOCLAIM to recover every message left
// idle in group by a consumer that died before acking, so a restarted
// engine or store never silently drops in-flight orders. Called once at
// startup, before the consumer group's live ">" read begins.
func ClaimPending(ctx context.Context, rdb *redis.Client, stream, group, claimant string, count int64) ([]Message, error) {
	summary, err := rdb.XPending(ctx, stream, group).Result()
	if err != nil {
		return nil, err
	}
	if summary.Count == 0 {
		return nil, nil
	}

	var out []Message
	start := "0-0"
	for {
		claimed, cursor, err := rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: claimant,
			MinIdle:  0,
			Start:    start,
			Count:    count,
		}).Result()
		if err != nil {
			return nil, err
		}
		for _, msg := range claimed {
			payload, ok := msg.Values[FieldKey].(string)
			if !ok {
				continue
			}
			out = append(out, Message{ID: msg.ID, Payload: payload})
		}
		if cursor == "0-0" || len(claimed) == 0 {
			break
		}
		start = cursor
	}
	return out, nil
}

// ReadGroup performs a blocking XREADGROUP ">" read for one consumer.
func ReadGroup(ctx context.Context, rdb *redis.Client, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	res, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out []Message
	for _, s := range res {
		for _, msg := range s.Messages {
			payload, ok := msg.Values[FieldKey].(string)
			if !ok {
				continue
			}
			out = append(out, Message{ID: msg.ID, Payload: payload})
		}
	}
	return out, nil
}

// Ack acknowledges ids on group, removing them from the pending list.
func Ack(ctx context.Context, rdb *redis.Client, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return rdb.XAck(ctx, stream, group, ids...).Err()
}

// Add appends one payload to stream, capped approximately to maxLen when
// maxLen > 0 (XADD MAXLEN ~); uncapped (a pure retention-trim stream, used
// by the store/processor/depth streams) when maxLen <= 0.
func Add(ctx context.Context, rdb *redis.Client, stream string, maxLen int64, payload string) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{FieldKey: payload},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return rdb.XAdd(ctx, args).Result()
}

// TrimMinID discards every entry older than minID, the way the store
// service retires messages after a successful snapshot.
func TrimMinID(ctx context.Context, rdb *redis.Client, stream, minID string) error {
	return rdb.XTrimMinID(ctx, stream, minID).Err()
}

// Len reports the current stream length, used by the engine restart
// contract to wait for the store stream to fully drain before loading a
// snapshot.
func Len(ctx context.Context, rdb *redis.Client, stream string) (int64, error) {
	return rdb.XLen(ctx, stream).Result()
}
