package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"luco-sms-platform/pkg/logger"
)

// Scheduler runs the periodic due scan. Singleton mode plus the scanning flag
// guarantee overlapping ticks coalesce instead of racing: a tick that arrives
// while a scan is running is skipped.
type Scheduler struct {
	Engine   *ScheduleService
	Interval time.Duration

	sched gocron.Scheduler
	job   gocron.Job

	mu       sync.Mutex
	scanning bool
	lastRun  time.Time
	lastErr  error
}

func NewScheduler(engine *ScheduleService, interval time.Duration) *Scheduler {
	return &Scheduler{
		Engine:   engine,
		Interval: interval,
	}
}

// Start begins ticking. Safe to call once; Stop shuts it down.
func (s *Scheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	job, err := sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			s.runScan(context.Background())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sched = sched
	s.job = job
	s.mu.Unlock()
	sched.Start()

	logger.Logger.Info("Due-scan scheduler started",
		zap.Duration("interval", s.Interval),
	)
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()

	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			logger.Logger.Error("Scheduler shutdown failed", zap.Error(err))
		}
	}
}

// runScan executes one due scan, skipping if a previous one is still going.
func (s *Scheduler) runScan(ctx context.Context) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		logger.Logger.Warn("Due scan still running, skipping tick")
		return
	}
	s.scanning = true
	s.mu.Unlock()

	now := time.Now()
	processed, err := s.Engine.RunDueScan(ctx, now)

	s.mu.Lock()
	s.scanning = false
	s.lastRun = now
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		logger.Logger.Error("Due scan failed", zap.Error(err))
		return
	}
	if processed > 0 {
		logger.Logger.Info("Due scan finished", zap.Int("processed", processed))
	}
}

// ===== HTTP handlers =====

// Status reports whether the scheduler is ticking and when it last scanned.
func (s *Scheduler) Status(c *fiber.Ctx) error {
	s.mu.Lock()
	running := s.sched != nil
	job := s.job
	scanning := s.scanning
	lastRun := s.lastRun
	lastErr := s.lastErr
	s.mu.Unlock()

	out := fiber.Map{
		"running":          running,
		"scanning":         scanning,
		"interval_seconds": int(s.Interval.Seconds()),
	}
	if !lastRun.IsZero() {
		out["last_run"] = lastRun
	}
	if lastErr != nil {
		out["last_error"] = lastErr.Error()
	}
	if job != nil {
		if next, err := job.NextRun(); err == nil {
			out["next_run"] = next
		}
	}
	return c.JSON(out)
}

// TriggerScan runs one due scan immediately, outside the ticker.
func (s *Scheduler) TriggerScan(c *fiber.Ctx) error {
	processed, err := s.Engine.RunDueScan(c.Context(), time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"processed": processed})
}
