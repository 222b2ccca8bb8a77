package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// PredictionStream carries every written game record with its prediction.
	PredictionStream = "predictions.basketball_ncaab"
	// SyncStream carries the summary of each finished sync run.
	SyncStream = "sync.basketball_ncaab"

	streamMaxLen = 10000
)

// RedisPublisher publishes events to Redis streams
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisStreamPublisher creates a publisher from an existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// PublishPrediction publishes a game record update to the prediction stream
func (rp *RedisPublisher) PublishPrediction(ctx context.Context, event interface{}) error {
	return rp.publish(ctx, PredictionStream, event)
}

// PublishSyncReport publishes a finished sync run to the sync stream
func (rp *RedisPublisher) PublishSyncReport(ctx context.Context, report interface{}) error {
	return rp.publish(ctx, SyncStream, report)
}

func (rp *RedisPublisher) publish(ctx context.Context, stream string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}
