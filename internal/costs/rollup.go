// Package costs maintains the derived daily spend rollups on top of the
// append-only cost ledger.
package costs

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"vidbase-backend/internal/repository"
)

const (
	rollupPollInterval = 1 * time.Hour
	rollupLockKey      = "cost_rollup_lock"
	rollupLockTTL      = 10 * time.Minute
)

// RollupScheduler periodically re-derives yesterday's and today's rollup
// rows from the ledger. Re-running a day is safe: rollups are derived
// data and each run overwrites the day's rows wholesale.
type RollupScheduler struct {
	ledgerRepo *repository.CostLedgerRepo
	redis      *redis.Client
	stopChan   chan struct{}
}

func NewRollupScheduler(ledgerRepo *repository.CostLedgerRepo, redisClient *redis.Client) *RollupScheduler {
	return &RollupScheduler{
		ledgerRepo: ledgerRepo,
		redis:      redisClient,
		stopChan:   make(chan struct{}),
	}
}

func (s *RollupScheduler) Start() {
	if s.ledgerRepo == nil {
		return
	}

	go s.loop()

	log.Printf("Cost rollup scheduler started")
}

func (s *RollupScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *RollupScheduler) loop() {
	// Run on startup as well as by interval.
	s.run(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(rollupPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.run(context.Background(), time.Now().UTC())
		}
	}
}

// run materializes rollups for today and yesterday. Yesterday is
// included so ledger entries that landed near midnight still get
// counted into the correct day.
func (s *RollupScheduler) run(ctx context.Context, now time.Time) {
	if !s.acquireLock(ctx) {
		return
	}
	defer s.redis.Del(ctx, rollupLockKey)

	for _, day := range []time.Time{now.AddDate(0, 0, -1), now} {
		rows, err := s.ledgerRepo.UpsertDailyRollups(ctx, day)
		if err != nil {
			log.Printf("cost rollup: failed for %s: %v", day.Format("2006-01-02"), err)
			continue
		}
		if rows > 0 {
			log.Printf("cost rollup: refreshed %d rows for %s", rows, day.Format("2006-01-02"))
		}
	}
}

// acquireLock keeps multiple server instances from rolling up the same
// window at once. Losing the race is not an error.
func (s *RollupScheduler) acquireLock(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}

	locked, err := s.redis.SetNX(ctx, rollupLockKey, "1", rollupLockTTL).Result()
	if err != nil {
		log.Printf("cost rollup: lock check failed: %v", err)
		return false
	}
	return locked
}
