package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"syscall"

	"os/signal"

	"github.com/spf13/cobra"

	"github.com/focusguard/focusd/internal/config"
	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/classify"
	"github.com/focusguard/focusd/pkg/fusion"
	"github.com/focusguard/focusd/pkg/record"
	"github.com/focusguard/focusd/pkg/session"
	"github.com/focusguard/focusd/pkg/supervisor"
	"github.com/focusguard/focusd/pkg/web"
)

func newRunCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the recorder: producer workers, fusion loop, and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDaemon(cfg, *cctx.configFlag)
		},
	}
}

func runDaemon(cfg *config.Config, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.L().With("component", "daemon")

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := session.NewManager(ctx, st)
	if err != nil {
		return err
	}

	sup := supervisor.New(supervisor.Config{
		ReadyTimeout: cfg.Supervisor.ReadyTimeout,
		StopTimeout:  cfg.Supervisor.StopTimeout,
	})
	defer sup.Stop()

	var workerArgs []string
	if configPath != "" {
		workerArgs = append(workerArgs, "--config", configPath)
	}
	if err := sup.Start(record.SourceFocus, workerArgs...); err != nil {
		return err
	}
	if err := sup.Start(record.SourceScreen, workerArgs...); err != nil {
		return err
	}

	logger.Info("waiting for workers")
	if err := sup.WaitReady(ctx); err != nil {
		return err
	}
	logger.Info("workers ready")

	server := web.NewServer(strconv.Itoa(cfg.Server.Port), st, sessions)
	server.Live().SetSession(sessions.CurrentID())

	prod, services, _ := newClassifiers(cfg)
	loop := fusion.New(
		fusion.Config{ClassifyTimeout: cfg.Classifier.Timeout},
		sup.Records(), prod, services, st, sessions, server.Live(), sup.Alive,
	)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Run(ctx) }()
	go func() { errCh <- loop.Run(ctx) }()

	if err := awaitPipeline(errCh, 2, stop); err != nil {
		logger.Error("daemon stopping", "error", err)
		return err
	}
	logger.Info("daemon stopped")
	return nil
}

// awaitPipeline collects one result per pipeline goroutine, canceling
// the rest as soon as the first exits, and returns the first
// meaningful failure. It only returns once every goroutine has
// unwound, so the deferred store close cannot race a loop that is
// still mid-insert.
func awaitPipeline(errCh <-chan error, n int, cancel func()) error {
	var first error
	for i := 0; i < n; i++ {
		err := <-errCh
		cancel()
		if first == nil && err != nil && !errors.Is(err, context.Canceled) {
			first = err
		}
	}
	return first
}

// newClassifiers picks the model-server client when configured, the
// static fallbacks otherwise.
func newClassifiers(cfg *config.Config) (classify.ProductivityClassifier, classify.ServiceExtractor, classify.EmotionClassifier) {
	if cfg.Classifier.BaseURL == "" {
		s := classify.NewStatic()
		return s, s, s
	}
	h := classify.NewHTTPClient(classify.HTTPConfig{
		BaseURL: cfg.Classifier.BaseURL,
		APIKey:  cfg.Classifier.APIKey,
		Timeout: cfg.Classifier.Timeout,
	})
	return h, h, h
}
