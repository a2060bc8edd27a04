package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
)

const (
	revisionKey   = "ea:graph:revision" // monotonically increasing graph revision
	eventsChannel = "ea:graph:events"   // Pub/Sub channel for change events
)

// RevisionStore tracks the graph revision in Redis and fans out change events.
type RevisionStore struct {
	client *redis.Client
}

func NewRevisionStore(client *redis.Client) *RevisionStore {
	return &RevisionStore{client: client}
}

// Current returns the latest revision, or 0 if nothing has changed yet.
func (s *RevisionStore) Current(ctx context.Context) (int64, error) {
	v, err := s.client.Get(ctx, revisionKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get graph revision: %w", err)
	}
	rev, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt graph revision %q: %w", v, err)
	}
	return rev, nil
}

// Bump increments the revision and publishes ev stamped with it.
func (s *RevisionStore) Bump(ctx context.Context, ev domain.ChangeEvent) (int64, error) {
	rev, err := s.client.Incr(ctx, revisionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump graph revision: %w", err)
	}

	ev.Revision = rev
	payload, err := json.Marshal(ev)
	if err != nil {
		return rev, fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := s.client.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return rev, fmt.Errorf("failed to publish change event: %w", err)
	}
	return rev, nil
}

// Subscribe streams change events until ctx is done. It returns once the
// subscription is confirmed; the channel is closed when it ends.
func (s *RevisionStore) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	sub := s.client.Subscribe(ctx, eventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to change events: %w", err)
	}
	out := make(chan domain.ChangeEvent, 16)

	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
