package websocket

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamConsumer tails a Redis stream and hands each entry's data field to
// the hub. It starts from new entries only.
type StreamConsumer struct {
	client *redis.Client
	stream string
	hub    *Hub
	block  time.Duration
	from   string
}

// NewStreamConsumer creates a consumer for one stream.
func NewStreamConsumer(client *redis.Client, stream string, hub *Hub) *StreamConsumer {
	return &StreamConsumer{client: client, stream: stream, hub: hub, block: 5 * time.Second, from: "$"}
}

// Run reads until ctx is cancelled.
func (sc *StreamConsumer) Run(ctx context.Context) {
	lastID := sc.from
	log.Printf("[websocket] Consuming %s", sc.stream)

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := sc.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{sc.stream, lastID},
			Count:   100,
			Block:   sc.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("[websocket] XRead %s failed: %v", sc.stream, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID
				data, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				sc.hub.Broadcast([]byte(data))
			}
		}
	}
}
