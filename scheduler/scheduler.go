package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"csc-scraper/notify"
	"csc-scraper/pipeline"
)

// Runner executes one full harvest
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Scheduler runs the harvester once or on a fixed interval and reports each run
type Scheduler struct {
	runner   Runner
	notifier notify.Notifier
	board    string
	every    time.Duration
}

// NewScheduler creates a new scheduler. A zero interval runs once.
func NewScheduler(runner Runner, notifier notify.Notifier, board string, every time.Duration) *Scheduler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Scheduler{
		runner:   runner,
		notifier: notifier,
		board:    board,
		every:    every,
	}
}

// Start runs immediately, then on every tick until ctx is cancelled.
// Only cancellation ends the loop; failed runs are reported and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.every <= 0 {
		_, err := s.RunOnce(ctx)
		return err
	}

	slog.Info("scheduler started", "every", s.every)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one harvest and sends its report
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.Summary, error) {
	slog.Info("starting run", "board", s.board)
	summary, err := s.runner.Run(ctx)

	if pipeline.IsInterrupted(err) {
		slog.Warn("interrupted by user")
		return summary, err
	}

	title, body := s.report(summary, err)
	if err != nil {
		slog.Error("run failed", "board", s.board, "err", err)
	} else {
		slog.Info("run finished", "board", s.board, "records", summary.Preprocess.Records, "took", summary.Duration)
	}

	if nerr := s.notifier.Notify(ctx, title, body); nerr != nil {
		slog.Warn("failed to send run report", "err", nerr)
	}
	return summary, err
}

func (s *Scheduler) report(summary pipeline.Summary, err error) (string, string) {
	if err != nil {
		return fmt.Sprintf("❌ %s run failed", s.board), fmt.Sprintf("%v\n\n%s", err, summary.Text(s.board))
	}
	return fmt.Sprintf("✅ %s run finished", s.board), summary.Text(s.board)
}
