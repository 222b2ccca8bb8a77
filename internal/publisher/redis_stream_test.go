package publisher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_PublishPrediction(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p := NewRedisStreamPublisher(client)
	defer client.Close()

	ctx := context.Background()
	event := map[string]any{"external_id": 271828, "over_under": "Under"}
	require.NoError(t, p.PublishPrediction(ctx, event))
	require.NoError(t, p.PublishSyncReport(ctx, map[string]int{"written": 3}))

	msgs, err := client.XRange(ctx, PredictionStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got))
	assert.Equal(t, "Under", got["over_under"])
	assert.Contains(t, msgs[0].Values, "timestamp")

	n, err := client.XLen(ctx, SyncStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
