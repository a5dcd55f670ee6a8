package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arithx/update-engine/internal/adapter/sqlite"
	"github.com/arithx/update-engine/internal/config"
	"github.com/arithx/update-engine/internal/domain"
	"github.com/arithx/update-engine/internal/domain/event"
	"github.com/arithx/update-engine/internal/download"
	"github.com/arithx/update-engine/internal/fetcher"
	"github.com/arithx/update-engine/internal/logger"
	"github.com/arithx/update-engine/internal/pipeline"
	"github.com/arithx/update-engine/internal/progress"
	"github.com/arithx/update-engine/internal/service/server"
)

type fetchOptions struct {
	url      string
	output   string
	size     uint64
	sha256   string
	noResume bool
	quiet    bool
}

func newFetchCmd(configPath *string, verbose *bool) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a payload and verify its size and digest",
		RunE: func(c *cobra.Command, args []string) error {
			return runFetch(*configPath, *verbose, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Payload URL")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Destination file path")
	cmd.Flags().Uint64Var(&opts.size, "size", 0, "Expected payload size in bytes (0 to skip the check)")
	cmd.Flags().StringVar(&opts.sha256, "sha256", "", "Expected payload SHA-256 hex digest (empty to skip the check)")
	cmd.Flags().BoolVar(&opts.noResume, "no-resume", false, "Discard any partial download and start over")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress the progress bar")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// runResult is the terminal outcome of one pipeline run
type runResult struct {
	code    domain.ExitCode
	stopped bool
}

// runObserver forwards runner callbacks to the event publisher and signals
// the main goroutine when the run reaches a terminal state
type runObserver struct {
	publisher *event.Publisher
	done      chan runResult
}

func (o *runObserver) StageCompleted(stageType string, code domain.ExitCode) {
	o.publisher.StageCompleted(stageType, code)
}

func (o *runObserver) ProcessingDone(code domain.ExitCode) {
	o.publisher.ProcessingDone(code)
	o.done <- runResult{code: code}
}

func (o *runObserver) ProcessingStopped() {
	o.publisher.ProcessingStopped()
	o.done <- runResult{stopped: true}
}

func runFetch(configPath string, verbose bool, opts *fetchOptions) error {
	cfg, zapLogger, err := setup(configPath, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	plan := domain.TransferPlan{
		SourceURL:       opts.url,
		DestinationPath: opts.output,
		ExpectedSize:    opts.size,
		ExpectedDigest:  opts.sha256,
		Resumable:       cfg.Download.Resume && !opts.noResume,
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	store, err := sqlite.Open(databasePath(cfg, opts.output))
	if err != nil {
		return fmt.Errorf("failed to open transfer store: %w", err)
	}
	defer store.Close()

	dispatcher := event.NewInMemoryDispatcher()
	dispatcher.Subscribe(event.NewLoggingHandler(zapLogger))
	metrics := event.NewMetricsHandler()
	dispatcher.Subscribe(metrics)
	if !opts.quiet {
		dispatcher.Subscribe(progress.NewConsoleReporter(os.Stderr))
	}

	publisher := event.NewPublisher(dispatcher, plan)
	observer := &runObserver{publisher: publisher, done: make(chan runResult, 1)}

	httpFetcher := fetcher.New(opts.url, &fetcher.Config{
		ChunkSize:     cfg.Download.GetChunkSize(),
		Timeout:       cfg.Download.GetTimeout(),
		SkipTLSVerify: cfg.Download.SkipTLSVerify,
	})

	stage := download.NewStage(httpFetcher, zapLogger)
	stage.SetStore(store)
	stage.SetObserver(publisher)
	stage.SetProgressPersistInterval(cfg.Download.GetProgressUpdateInterval())

	feeder := pipeline.NewFeederStage(plan)
	pipeline.Bond[domain.TransferPlan](feeder, stage)
	stage.SetOutput(pipeline.NewBinding[domain.TransferPlan]())

	runner := pipeline.NewRunner(observer, zapLogger)
	runner.Enqueue(feeder)
	runner.Enqueue(stage)

	if cfg.HTTP.Enabled {
		httpServer := server.New(&server.Config{
			BindAddr:     cfg.HTTP.BindAddr,
			ReadTimeout:  cfg.HTTP.GetReadTimeout(),
			WriteTimeout: cfg.HTTP.GetWriteTimeout(),
			IdleTimeout:  cfg.HTTP.GetIdleTimeout(),
		}, store, runner, metrics, zapLogger)
		go func() {
			if err := httpServer.Start(); err != nil {
				zapLogger.Error("HTTP server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Stop(shutdownCtx); err != nil {
				zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	runner.StartProcessing()

	var result runResult
	select {
	case result = <-observer.done:
	case <-sigChan:
		zapLogger.Info("shutdown signal received, stopping download")
		runner.StopProcessing()
		result = <-observer.done
	}

	if result.stopped {
		return fmt.Errorf("download stopped")
	}
	if !result.code.Success() {
		return fmt.Errorf("download failed: %s", result.code)
	}
	return nil
}

// setup loads configuration and initializes the logger
func setup(configPath string, verbose bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.Format); err != nil {
		return nil, nil, err
	}
	return cfg, logger.GetZapLogger(), nil
}

// databasePath resolves the transfer store location, defaulting to a
// dotfile next to the destination so resume state travels with the payload
func databasePath(cfg *config.Config, output string) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return filepath.Join(filepath.Dir(output), ".update-engine.db")
}
