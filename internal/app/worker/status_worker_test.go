package worker

import (
	"context"
	"testing"
	"time"

	"quizarena/internal/app/service"
	"quizarena/internal/domain/repository"
	"quizarena/internal/platform/config"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeTransitioner records the order the scheduler transitions run in. The
// embedded interface covers the methods tick never touches.
type fakeTransitioner struct {
	repository.ContestRepository
	calls     []string
	live      []string
	complete  []string
	cancelled []string
}

func (f *fakeTransitioner) MarkLiveDue(ctx context.Context, now time.Time) ([]string, error) {
	f.calls = append(f.calls, "live")
	return f.live, nil
}

func (f *fakeTransitioner) MarkCompleteDue(ctx context.Context, now time.Time) ([]string, error) {
	f.calls = append(f.calls, "complete")
	return f.complete, nil
}

func (f *fakeTransitioner) CancelUnderfilledDue(ctx context.Context, now time.Time) ([]string, error) {
	f.calls = append(f.calls, "cancel")
	return f.cancelled, nil
}

func newWorkerFixture(t *testing.T, repo *fakeTransitioner) (*StatusWorker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	config.AppConfig = &config.Config{
		SchedulerLockKey:  "contest_scheduler_lock",
		SchedulerLockTTL:  time.Minute,
		SchedulerInterval: time.Second,
	}

	contestService := service.NewContestService(nil, nil, nil, client, time.Hour, 15, 5, 50, 3)
	return NewStatusWorker(client, repo, contestService), mr
}

func TestTickRunsCancelBeforePromotion(t *testing.T) {
	repo := &fakeTransitioner{cancelled: []string{"c1"}, live: []string{"c2"}}
	w, mr := newWorkerFixture(t, repo)

	mr.Set("contests:live:any:1:10", "stale-page")
	w.tick(context.Background(), time.Now())

	want := []string{"cancel", "live", "complete"}
	if len(repo.calls) != len(want) {
		t.Fatalf("expected %d transition calls, got %v", len(want), repo.calls)
	}
	for i, call := range want {
		if repo.calls[i] != call {
			t.Fatalf("expected call order %v, got %v", want, repo.calls)
		}
	}

	// Transitions invalidate the cached listings.
	if mr.Exists("contests:live:any:1:10") {
		t.Fatal("expected cached listing pages to be dropped after transitions")
	}
}

func TestTickKeepsCacheWhenNothingMoved(t *testing.T) {
	repo := &fakeTransitioner{}
	w, mr := newWorkerFixture(t, repo)

	mr.Set("contests:live:any:1:10", "page")
	w.tick(context.Background(), time.Now())

	if !mr.Exists("contests:live:any:1:10") {
		t.Fatal("cache should survive a tick with no transitions")
	}
}

func TestTickWithLockSkipsWhenHeld(t *testing.T) {
	repo := &fakeTransitioner{}
	w, mr := newWorkerFixture(t, repo)

	// Another instance owns the tick.
	mr.Set(config.AppConfig.SchedulerLockKey, "other-instance")
	w.tickWithLock(context.Background())
	if len(repo.calls) != 0 {
		t.Fatalf("expected no transitions while lock is held, got %v", repo.calls)
	}

	mr.Del(config.AppConfig.SchedulerLockKey)
	w.tickWithLock(context.Background())
	if len(repo.calls) != 3 {
		t.Fatalf("expected transitions after lock release, got %v", repo.calls)
	}
	// The lock is released once the tick finishes.
	if mr.Exists(config.AppConfig.SchedulerLockKey) {
		t.Fatal("scheduler lock should be released after the tick")
	}
}
