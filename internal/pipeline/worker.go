package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidbase-backend/internal/models"
	"vidbase-backend/internal/repository"
)

const (
	QueueProcess   = "queue:video-pipeline"
	QueueReprocess = "queue:video-reprocess"

	// videoLockTTL bounds how long a crashed worker's lock survives. After
	// expiry the video itself stays parked mid-pipeline until a reprocess
	// event reclaims it; the lock only guards against concurrent runs.
	videoLockTTL = 30 * time.Minute

	// admissionRetryDelay spaces out requeues for creators at their
	// concurrency cap.
	admissionRetryDelay = 10 * time.Second
)

// unlockScript deletes the video lock only when it still holds this run's
// token, so a worker that outlived its TTL cannot delete a lock a newer
// run now holds.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Queue is the producer side of the pipeline work queues.
type Queue struct {
	client *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue serializes a pipeline event onto a work queue.
func (q *Queue) Enqueue(ctx context.Context, queue string, event models.PipelineEvent) error {
	if event.QueuedAt.IsZero() {
		event.QueuedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline event: %w", err)
	}
	return q.client.LPush(ctx, queue, payload).Err()
}

// redisConn is the slice of the Redis client the pool uses.
type redisConn interface {
	redis.Scripter
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Decr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// runner is the orchestrator surface the pool drives: Run for first-time
// processing, Reclaim for reprocess events that may take over a video
// stranded mid-pipeline.
type runner interface {
	Run(ctx context.Context, videoID uuid.UUID) error
	Reclaim(ctx context.Context, videoID uuid.UUID) error
}

// Pool pulls pipeline events off Redis and hands them to the
// orchestrator. A per-video lock keeps duplicate deliveries from running
// the same video twice, and a per-creator counter caps how many of one
// creator's videos process concurrently.
type Pool struct {
	redis        redisConn
	orchestrator runner
	workerCount  int
	creatorCap   int64
	stopChan     chan struct{}
}

func NewPool(redisClient *redis.Client, orchestrator *Orchestrator, workerCount int, creatorCap int) *Pool {
	return &Pool{
		redis:        redisClient,
		orchestrator: orchestrator,
		workerCount:  workerCount,
		creatorCap:   int64(creatorCap),
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{QueueProcess, QueueReprocess}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d pipeline workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Pipeline worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}
		queue := result[0]

		var event models.PipelineEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			log.Printf("Worker %d: failed to parse pipeline event: %v", id, err)
			continue
		}

		p.handle(ctx, id, queue, event)
	}
}

func (p *Pool) handle(ctx context.Context, workerID int, queue string, event models.PipelineEvent) {
	lockKey := fmt.Sprintf("video_lock:%s", event.VideoID)
	token := uuid.NewString()

	locked, err := p.redis.SetNX(ctx, lockKey, token, videoLockTTL).Result()
	if err != nil || !locked {
		return // Another worker has this video
	}
	defer unlockScript.Run(ctx, p.redis, []string{lockKey}, token)

	if !p.admit(ctx, event.CreatorID.String()) {
		// Creator is at their concurrency cap. Put the event back after
		// a delay instead of spinning on it.
		p.requeue(queue, event)
		return
	}
	defer p.release(ctx, event.CreatorID.String())

	log.Printf("Worker %d: processing video %s (source: %s)", workerID, event.VideoID, event.Source)

	run := p.orchestrator.Run
	if queue == QueueReprocess {
		run = p.orchestrator.Reclaim
	}

	if err := run(ctx, event.VideoID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			log.Printf("Worker %d: video %s already claimed elsewhere", workerID, event.VideoID)
			return
		}
		log.Printf("Worker %d: video %s failed: %v", workerID, event.VideoID, err)
		return
	}

	log.Printf("Worker %d: video %s completed", workerID, event.VideoID)
}

// admit increments the creator's active counter and admits the video
// only while the counter stays at or under the cap.
func (p *Pool) admit(ctx context.Context, creatorID string) bool {
	key := fmt.Sprintf("creator_active:%s", creatorID)

	active, err := p.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("Failed to check creator concurrency for %s: %v", creatorID, err)
		return true // Fail open rather than stalling the queue
	}
	p.redis.Expire(ctx, key, videoLockTTL)

	if active > p.creatorCap {
		p.redis.Decr(ctx, key)
		return false
	}
	return true
}

func (p *Pool) release(ctx context.Context, creatorID string) {
	key := fmt.Sprintf("creator_active:%s", creatorID)
	if val, err := p.redis.Decr(ctx, key).Result(); err == nil && val < 0 {
		p.redis.Del(ctx, key)
	}
}

func (p *Pool) requeue(queue string, event models.PipelineEvent) {
	event.Attempt++
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal requeued event for video %s: %v", event.VideoID, err)
		return
	}

	time.AfterFunc(admissionRetryDelay, func() {
		if err := p.redis.LPush(context.Background(), queue, payload).Err(); err != nil {
			log.Printf("Failed to requeue video %s: %v", event.VideoID, err)
		}
	})
}
