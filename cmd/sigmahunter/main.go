package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"SigmaHunter/internal/collector"
	"SigmaHunter/internal/config"
	"SigmaHunter/internal/notifier"
	"SigmaHunter/internal/recorder"
	"SigmaHunter/internal/report"
	"SigmaHunter/internal/scheduler"
)

var (
	cfgPath string
	useMock bool
)

func main() {
	root := &cobra.Command{
		Use:           "sigmahunter",
		Short:         "Render an expected-move dashboard from ATM option premiums",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runOnce,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to the YAML config file")
	root.PersistentFlags().BoolVar(&useMock, "mock", false, "use synthetic market data instead of a provider")

	root.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Regenerate the dashboard on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	})

	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

type app struct {
	cfg   *config.Config
	sched *scheduler.Scheduler
	rec   recorder.Recorder
	tn    *notifier.TelegramNotifier
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	var fetcher collector.Fetcher
	switch {
	case useMock:
		fetcher = collector.NewMockFetcher(cfg.Symbols)
	case cfg.DataSource.BaseURL != "":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.SymbolMap)
	}
	log.Infof("data source: %s", fetcher.Name())

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnf("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	sched := scheduler.NewScheduler(ctx, collector.NewCollector(fetcher), tn, rec, scheduler.Settings{
		Symbols:    cfg.Symbols,
		OutputPath: cfg.Report.OutputPath,
		CSVPath:    cfg.Report.CSVPath,
		Report: report.Options{
			Title:             cfg.Report.Title,
			ShowDistance:      *cfg.Report.ShowDistance,
			DistanceThreshold: *cfg.Report.DistanceThreshold,
		},
	})
	return &app{cfg: cfg, sched: sched, rec: rec, tn: tn}, nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.rec.Close()

	run, err := a.sched.RunNow()
	if err != nil {
		return err
	}
	report.PrintTable(cmd.OutOrStdout(), run)
	a.sched.Notify(run)
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.rec.Close()

	if err := a.sched.RegisterAll(a.cfg.Schedule.RunCron); err != nil {
		return err
	}
	a.sched.Start()
	defer a.sched.Stop()

	if a.tn != nil {
		go a.tn.StartPolling(ctx, a.sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, generating dashboard now")
		go func() {
			run, err := a.sched.RunNow()
			if err != nil {
				log.Errorf("initial run: %v", err)
				return
			}
			a.sched.Notify(run)
		}()
	}

	log.Infof("watching with schedule %q. Press Ctrl+C to stop.", a.cfg.Schedule.RunCron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	return nil
}
