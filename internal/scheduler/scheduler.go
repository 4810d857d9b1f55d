// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	sessionCleanupSpec = "@hourly"
	limiterCleanupSpec = "@every 5m"
	// factJobTimeout bounds one pre-generation of the daily fact.
	factJobTimeout = 2 * time.Minute
)

type FactGenerator interface {
	GenerateDailyFact(ctx context.Context) string
}

type SessionPruner interface {
	DeleteExpired() (int64, error)
}

type Cleaner interface {
	Cleanup()
}

type Config struct {
	// DailyFactSpec is a five-field cron spec evaluated in Location.
	DailyFactSpec string
	Location      *time.Location
	Facts         FactGenerator
	Sessions      SessionPruner
	Limiter       Cleaner
	Logger        *slog.Logger
}

// Scheduler owns a cron runner with the daily fact, session expiry and
// rate limiter cleanup jobs registered.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	facts    FactGenerator
	sessions SessionPruner
	limiter  Cleaner
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(cfg Config) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Location)),
		facts:    cfg.Facts,
		sessions: cfg.Sessions,
		limiter:  cfg.Limiter,
		logger:   cfg.Logger.With("component", "scheduler"),
		ctx:      context.Background(),
	}

	if s.facts != nil {
		if _, err := s.cron.AddFunc(cfg.DailyFactSpec, s.runDailyFact); err != nil {
			return nil, fmt.Errorf("schedule daily fact %q: %w", cfg.DailyFactSpec, err)
		}
	}
	if s.sessions != nil {
		if _, err := s.cron.AddFunc(sessionCleanupSpec, s.runSessionCleanup); err != nil {
			return nil, fmt.Errorf("schedule session cleanup: %w", err)
		}
	}
	if s.limiter != nil {
		if _, err := s.cron.AddFunc(limiterCleanupSpec, s.limiter.Cleanup); err != nil {
			return nil, fmt.Errorf("schedule rate limiter cleanup: %w", err)
		}
	}
	return s, nil
}

// Start runs the jobs in the background until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) runDailyFact() {
	ctx, cancel := context.WithTimeout(s.jobContext(), factJobTimeout)
	defer cancel()

	fact := s.facts.GenerateDailyFact(ctx)
	s.logger.Info("daily fact generated", "length", len(fact))
}

func (s *Scheduler) runSessionCleanup() {
	n, err := s.sessions.DeleteExpired()
	if err != nil {
		s.logger.Error("delete expired sessions", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("deleted expired sessions", "count", n)
	}
}
