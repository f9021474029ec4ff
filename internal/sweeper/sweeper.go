// Package sweeper runs the periodic blob/metadata reconciliation pass and
// purges expired in-memory sessions.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sinzn/dbDrive/internal/metrics"
	"github.com/sinzn/dbDrive/internal/service"
	"github.com/sinzn/dbDrive/internal/session"
)

const DefaultGrace = time.Hour

// Sweeper coordinates the background reconciliation loop.
type Sweeper interface {
	Start(ctx context.Context) error
	Shutdown()
	RunOnce(ctx context.Context) (service.ReconcileReport, error)
}

type Config struct {
	// Interval between passes. Zero disables the background loop.
	Interval time.Duration
	// Grace is the minimum age of an unreferenced blob before it is removed.
	Grace  time.Duration
	Logger *logrus.Logger
}

type sweeper struct {
	cfg     Config
	files   service.FileService
	purger  session.Purger
	metrics *metrics.Recorder

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a sweeper. purger may be nil when the session store expires
// entries on its own.
func New(cfg Config, files service.FileService, purger session.Purger, rec *metrics.Recorder) Sweeper {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &sweeper{
		cfg:     cfg,
		files:   files,
		purger:  purger,
		metrics: rec,
	}
}

func (s *sweeper) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		s.cfg.Logger.Info("reconciliation sweeper disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(loopCtx)
	}()

	s.cfg.Logger.Infof("reconciliation sweeper started, interval %s, grace %s", s.cfg.Interval, s.cfg.Grace)
	return nil
}

func (s *sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

func (s *sweeper) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.cfg.Logger.Info("reconciliation sweeper stopped")
}

func (s *sweeper) RunOnce(ctx context.Context) (service.ReconcileReport, error) {
	started := time.Now()

	purged := 0
	if s.purger != nil {
		purged = s.purger.PurgeExpired(ctx)
		s.metrics.RecordSweep(metrics.SweepSession, purged)
	}

	report, err := s.files.Reconcile(ctx, s.cfg.Grace)
	if err != nil {
		if ctx.Err() == nil {
			s.cfg.Logger.WithError(err).Error("reconciliation pass failed")
		}
		return report, err
	}

	entry := s.cfg.Logger.WithFields(logrus.Fields{
		"orphan_blobs":     report.OrphanBlobs,
		"dangling_records": report.DanglingRecords,
		"sessions_purged":  purged,
		"errors":           len(report.Errors),
		"took":             time.Since(started).String(),
	})
	for _, e := range report.Errors {
		s.cfg.Logger.WithError(e).Warn("reconciliation step failed")
	}
	if report.OrphanBlobs+report.DanglingRecords+purged > 0 || len(report.Errors) > 0 {
		entry.Info("reconciliation pass finished")
	} else {
		entry.Debug("reconciliation pass finished")
	}
	return report, nil
}
