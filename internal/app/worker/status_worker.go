package worker

import (
	"context"
	"log"
	"time"

	"quizarena/internal/app/service"
	"quizarena/internal/domain/repository"
	"quizarena/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StatusWorker advances contests through their lifecycle on a wall-clock
// schedule: pending contests go live (or get cancelled when underfilled)
// once start_time passes, and live contests complete once end_time passes.
// A Redis lock keeps multiple instances from racing on the same tick.
type StatusWorker struct {
	rdb            *redis.Client
	contestRepo    repository.ContestRepository
	contestService *service.ContestService
}

func NewStatusWorker(rdb *redis.Client, contestRepo repository.ContestRepository, contestService *service.ContestService) *StatusWorker {
	return &StatusWorker{
		rdb:            rdb,
		contestRepo:    contestRepo,
		contestService: contestService,
	}
}

func (w *StatusWorker) Start(ctx context.Context) {
	interval := config.AppConfig.SchedulerInterval
	log.Printf("Status worker started, ticking every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Status worker stopping...")
			return
		case <-ticker.C:
			w.tickWithLock(ctx)
		}
	}
}

func (w *StatusWorker) tickWithLock(ctx context.Context) {
	lockValue := uuid.NewString()

	ok, err := w.rdb.SetNX(ctx, config.AppConfig.SchedulerLockKey, lockValue, config.AppConfig.SchedulerLockTTL).Result()
	if err != nil {
		log.Printf("ERROR: Failed to attempt scheduler lock acquisition: %v", err)
		return
	}
	if !ok {
		// Another instance owns this tick.
		return
	}

	defer func() {
		script := redis.NewScript(`
            if redis.call("get", KEYS[1]) == ARGV[1] then
                return redis.call("del", KEYS[1])
            else
                return 0
            end
        `)
		deleted, err := script.Run(ctx, w.rdb, []string{config.AppConfig.SchedulerLockKey}, lockValue).Result()
		if err != nil {
			log.Printf("ERROR: Failed to release scheduler lock: %v", err)
		} else if deleted.(int64) == 0 {
			log.Printf("WARN: Scheduler lock was not held at release time; it may have expired.")
		}
	}()

	w.tick(ctx, time.Now())
}

func (w *StatusWorker) tick(ctx context.Context, now time.Time) {
	changed := 0

	// Order matters: cancellation must run before promotion so an
	// underfilled contest never goes live on the same tick.
	cancelled, err := w.contestRepo.CancelUnderfilledDue(ctx, now)
	if err != nil {
		log.Printf("ERROR: Failed to cancel underfilled contests: %v", err)
	} else if len(cancelled) > 0 {
		log.Printf("INFO: Cancelled %d underfilled contest(s): %v", len(cancelled), cancelled)
		changed += len(cancelled)
	}

	live, err := w.contestRepo.MarkLiveDue(ctx, now)
	if err != nil {
		log.Printf("ERROR: Failed to promote contests to live: %v", err)
	} else if len(live) > 0 {
		log.Printf("INFO: Promoted %d contest(s) to live: %v", len(live), live)
		changed += len(live)
	}

	completed, err := w.contestRepo.MarkCompleteDue(ctx, now)
	if err != nil {
		log.Printf("ERROR: Failed to complete contests: %v", err)
	} else if len(completed) > 0 {
		log.Printf("INFO: Completed %d contest(s): %v", len(completed), completed)
		changed += len(completed)
	}

	if changed > 0 {
		w.contestService.InvalidateListCache(ctx)
	}
}
