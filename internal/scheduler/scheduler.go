package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"SigmaHunter/internal/collector"
	"SigmaHunter/internal/model"
	"SigmaHunter/internal/notifier"
	"SigmaHunter/internal/recorder"
	"SigmaHunter/internal/report"
)

// Settings describes what a dashboard run produces.
type Settings struct {
	Symbols    []string
	OutputPath string
	CSVPath    string
	Report     report.Options
}

// Scheduler runs the dashboard task on demand or on a cron schedule.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  *notifier.TelegramNotifier
	Recorder  recorder.Recorder
	Settings  Settings
	Ctx       context.Context
	Now       func() time.Time

	mu   sync.Mutex
	last *model.Run
}

// NewScheduler creates a new Scheduler. tn may be nil when Telegram is not configured.
func NewScheduler(ctx context.Context, col *collector.Collector, tn *notifier.TelegramNotifier, rec recorder.Recorder, settings Settings) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  tn,
		Recorder:  rec,
		Settings:  settings,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the dashboard task.
func (s *Scheduler) RegisterAll(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, s.dashboardTask); err != nil {
		return fmt.Errorf("register dashboard task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

// RunNow generates the dashboard once. Per-symbol failures are part of the
// returned run. A cancelled context or a failure to write the HTML file is
// returned as an error; on cancellation nothing is written or recorded.
func (s *Scheduler) RunNow() (*model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &model.Run{ID: uuid.NewString(), StartedAt: s.Now()}
	log.Infof("run %s: collecting %d symbols via %s", run.ID, len(s.Settings.Symbols), s.Collector.Fetcher.Name())
	results, err := s.Collector.Collect(s.Ctx, s.Settings.Symbols)
	if err != nil {
		return nil, fmt.Errorf("run %s cancelled: %w", run.ID, err)
	}
	run.Results = results

	bands := run.Bands()
	doc, err := report.Render(bands, run.StartedAt, s.Settings.Report)
	if err != nil {
		return run, err
	}
	if err := report.WriteFile(s.Settings.OutputPath, doc); err != nil {
		return run, err
	}
	log.Infof("run %s: wrote %s (%d/%d symbols)", run.ID, s.Settings.OutputPath, len(bands), len(run.Results))

	if s.Settings.CSVPath != "" {
		if err := report.WriteCSV(s.Settings.CSVPath, bands); err != nil {
			log.Errorf("write csv: %v", err)
		}
	}
	if err := s.Recorder.RecordRun(run); err != nil {
		log.Errorf("record run: %v", err)
	}
	s.last = run
	return run, nil
}

// LastRun returns the most recent completed run, or nil.
func (s *Scheduler) LastRun() *model.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) dashboardTask() {
	log.Info("running dashboard task")
	run, err := s.RunNow()
	if err != nil {
		log.Errorf("dashboard task: %v", err)
		s.trySend(fmt.Sprintf("❌ dashboard generation failed: %v", err))
		return
	}
	s.trySend(notifier.FormatRunSummary(run, s.Settings.Report.DistanceThreshold))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/bands":
		run := s.LastRun()
		if run == nil {
			if run = s.historyRun(); run != nil {
				return "📚 From history\n" + notifier.FormatRunSummary(run, s.Settings.Report.DistanceThreshold)
			}
			return "No run yet. Send /refresh to generate the dashboard."
		}
		return notifier.FormatRunSummary(run, s.Settings.Report.DistanceThreshold)
	case "/refresh":
		run, err := s.RunNow()
		if err != nil {
			return fmt.Sprintf("❌ dashboard generation failed: %v", err)
		}
		return notifier.FormatRunSummary(run, s.Settings.Report.DistanceThreshold)
	default:
		return "Commands:\n• /bands\n• /refresh"
	}
}

// historyRun rebuilds the latest recorded band of every configured symbol,
// for use before this process has completed a run of its own.
func (s *Scheduler) historyRun() *model.Run {
	h, ok := s.Recorder.(recorder.History)
	if !ok {
		return nil
	}
	run := &model.Run{}
	for _, symbol := range s.Settings.Symbols {
		band, at, err := h.LatestBand(symbol)
		if err != nil {
			log.Warnf("read history for %s: %v", symbol, err)
			continue
		}
		if band == nil {
			continue
		}
		if at.After(run.StartedAt) {
			run.StartedAt = at
		}
		run.Results = append(run.Results, model.BandResult{Symbol: symbol, Band: band})
	}
	if len(run.Results) == 0 {
		return nil
	}
	return run
}

// Notify sends the summary of run when Telegram is configured.
func (s *Scheduler) Notify(run *model.Run) {
	s.trySend(notifier.FormatRunSummary(run, s.Settings.Report.DistanceThreshold))
}

func (s *Scheduler) trySend(text string) {
	if !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Errorf("send notification: %v", err)
	}
}
