package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"vidbase-backend/internal/models"
)

// creatorChannel is the pub/sub channel carrying one creator's pipeline
// outcomes. The websocket hub subscribes with the same key.
func creatorChannel(creatorID string) string {
	return fmt.Sprintf("creator_events:%s", creatorID)
}

// RedisPublisher pushes completion and failure events over Redis pub/sub.
// Delivery is best effort: a publish failure is logged, never propagated,
// because event fan-out must not affect pipeline outcomes.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishCompletion(ctx context.Context, event models.CompletionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal completion event for video %s: %v", event.VideoID, err)
		return
	}

	channel := creatorChannel(event.CreatorID.String())
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("Failed to publish completion event for video %s: %v", event.VideoID, err)
	}
}
