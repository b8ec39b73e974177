// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// CleanupEnqueuer queues an orphan snapshot sweep.
type CleanupEnqueuer interface {
	ScheduleSnapshotCleanup(ctx context.Context) error
}

// SnapshotCleanupScheduler enqueues snapshot cleanup on a cron schedule.
type SnapshotCleanupScheduler struct {
	enqueuer CleanupEnqueuer
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewSnapshotCleanupScheduler(enqueuer CleanupEnqueuer, schedule string) *SnapshotCleanupScheduler {
	return &SnapshotCleanupScheduler{
		enqueuer: enqueuer,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the job and starts cron. It stops when ctx is cancelled.
func (s *SnapshotCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot cleanup: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Printf("Snapshot cleanup scheduler: started with schedule '%s'. Next run: %v",
		s.schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and stops cron.
func (s *SnapshotCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false
	log.Printf("Snapshot cleanup scheduler: stopped")
}

// RunNow enqueues a cleanup immediately.
func (s *SnapshotCleanupScheduler) RunNow(ctx context.Context) {
	if err := s.enqueuer.ScheduleSnapshotCleanup(ctx); err != nil {
		log.Printf("Snapshot cleanup scheduler: failed to enqueue cleanup: %v", err)
	}
}

func (s *SnapshotCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the job fires next, or nil when stopped.
func (s *SnapshotCleanupScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}
