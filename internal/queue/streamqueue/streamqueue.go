// Package streamqueue implements queue.Queue over Redis Streams: a
// named stream with a named consumer group, XADD to enqueue, XREADGROUP
// from ">" to dequeue, XACK on success, and an XADD to a dead-letter
// stream on terminal failure.
package streamqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/littleandi/filehorizon/internal/domain"
	"github.com/littleandi/filehorizon/internal/logging"
	"github.com/littleandi/filehorizon/internal/queue"
)

const eventField = "event"

type Config struct {
	StreamName               string
	ConsumerGroup            string
	DeadLetterStream         string
	VisibilityTimeout        time.Duration
	ClaimPollInterval        time.Duration
}

type Queue struct {
	client       *redis.Client
	cfg          Config
	consumerName string
}

// New creates the consumer group if absent (MKSTREAM) and returns a
// ready-to-use stream queue.
func New(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 30 * time.Second
	}
	if cfg.ClaimPollInterval <= 0 {
		cfg.ClaimPollInterval = cfg.VisibilityTimeout / 2
	}
	err := client.XGroupCreateMkStream(ctx, cfg.StreamName, cfg.ConsumerGroup, "$").Err()
	if err != nil && !isBusyGroupErr(err) {
		return nil, fmt.Errorf("streamqueue: create group %s/%s: %w", cfg.StreamName, cfg.ConsumerGroup, err)
	}
	return &Queue{
		client:       client,
		cfg:          cfg,
		consumerName: "fh-" + uuid.NewString(),
	}, nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func (q *Queue) Enqueue(ctx context.Context, event domain.FileEvent) (queue.Result, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return queue.Result{}, fmt.Errorf("streamqueue: marshal event: %w", err)
	}
	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.StreamName,
		Values: map[string]any{eventField: payload},
	}).Result()
	if err != nil {
		return queue.Result{}, fmt.Errorf("streamqueue: xadd %s: %w", q.cfg.StreamName, err)
	}
	return queue.Result{Accepted: true}, nil
}

func (q *Queue) Dequeue(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	go q.readLoop(ctx, out)
	go q.claimLoop(ctx, out)
	return out, nil
}

func (q *Queue) readLoop(ctx context.Context, out chan<- queue.Delivery) {
	defer close(out)
	log := logging.GetLogger(ctx, logging.SubsysQueue)
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.cfg.ConsumerGroup,
			Consumer: q.consumerName,
			Streams:  []string{q.cfg.StreamName, ">"},
			Count:    32,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Warn("xreadgroup failed", "error", err)
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				if !q.deliver(ctx, msg, out) {
					return
				}
			}
		}
	}
}

func (q *Queue) claimLoop(ctx context.Context, out chan<- queue.Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   q.cfg.StreamName,
				Group:    q.cfg.ConsumerGroup,
				Consumer: q.consumerName,
				MinIdle:  q.cfg.VisibilityTimeout,
				Start:    "0-0",
				Count:    32,
			}).Result()
			if err != nil {
				continue
			}
			for _, msg := range msgs {
				if !q.deliver(ctx, msg, out) {
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(ctx context.Context, msg redis.XMessage, out chan<- queue.Delivery) bool {
	raw, ok := msg.Values[eventField].(string)
	if !ok {
		_ = q.client.XAck(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, msg.ID).Err()
		return true
	}
	var event domain.FileEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		q.deadLetter(ctx, raw, "unmarshal failure", "Validation.Malformed")
		_ = q.client.XAck(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, msg.ID).Err()
		return true
	}
	id := msg.ID
	delivery := queue.Delivery{
		Event: event,
		Ack: func(ctx context.Context) error {
			return q.client.XAck(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, id).Err()
		},
		Nack: func(ctx context.Context, reason, code string) error {
			q.deadLetter(ctx, raw, reason, code)
			return q.client.XAck(ctx, q.cfg.StreamName, q.cfg.ConsumerGroup, id).Err()
		},
	}
	select {
	case out <- delivery:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *Queue) deadLetter(ctx context.Context, rawEvent, reason, code string) {
	q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.DeadLetterStream,
		Values: map[string]any{
			eventField:  rawEvent,
			"reason":    reason,
			"code":      code,
			"failedAt":  time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
}

func (q *Queue) Close() error { return nil }
