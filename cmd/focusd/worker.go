package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/focusguard/focusd/internal/config"
	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/pkg/focus"
	"github.com/focusguard/focusd/pkg/record"
	"github.com/focusguard/focusd/pkg/screen"
	"github.com/focusguard/focusd/pkg/vision"
)

// newWorkerCommand is the hidden entry point the supervisor re-invokes
// this binary with. Workers speak NDJSON envelopes on stdout; all
// logging goes to stderr.
func newWorkerCommand(cctx *commandContext) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:    "worker",
		Hidden: true,
		Short:  "Internal producer worker processes",
	}

	workerCmd.AddCommand(&cobra.Command{
		Use:   "vision",
		Short: "Webcam focus producer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			return runVisionWorker(cfg)
		},
	})

	workerCmd.AddCommand(&cobra.Command{
		Use:   "screen",
		Short: "Screen context producer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			return runScreenWorker(cfg)
		},
	})

	return workerCmd
}

func runVisionWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := vision.NewMeshDetector(vision.Config{
		FaceModelPath: cfg.Detector.FaceModelPath,
		MeshModelPath: cfg.Detector.MeshModelPath,
		MinConfidence: cfg.Detector.MinConfidence,
	})
	if err != nil {
		return err
	}
	defer detector.Close()

	machine := focus.NewMachine(focus.Thresholds{
		Yaw:          cfg.Focus.YawThreshold,
		Pitch:        cfg.Focus.PitchThreshold,
		ExtremeYaw:   cfg.Focus.ExtremeYawThreshold,
		ExtremePitch: cfg.Focus.ExtremePitchThresh,
		EARNormal:    cfg.Focus.EARThreshNormal,
		EARTilted:    cfg.Focus.EARThreshTilted,
		ConsecFrames: cfg.Focus.EARConsecFrames,
		HistorySize:  cfg.Focus.HistorySize,
	})

	_, _, emotion := newClassifiers(cfg)

	producer := vision.NewProducer(vision.CaptureConfig{
		Devices:         cfg.Camera.Devices,
		FlipHorizontal:  cfg.Camera.FlipHorizontal,
		MaxReadFailures: cfg.Camera.MaxReadFailures,
	}, detector, machine, emotion, record.NewStreamEmitter(os.Stdout))

	err = producer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runScreenWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ocr screen.OCR
	if cfg.Screen.OCREnabled {
		engine, err := screen.NewTesseractOCR()
		if err != nil {
			// OCR is an enhancement; run without it rather than die.
			log.L().Warn("ocr unavailable", "error", err)
		} else {
			ocr = engine
			defer engine.Close()
		}
	}

	producer := screen.NewProducer(screen.ProducerConfig{
		Interval:   cfg.Screen.Interval,
		OCREnabled: cfg.Screen.OCREnabled,
		OCRTimeout: cfg.Screen.OCRTimeout,
	}, screen.X11Querier{}, ocr, record.NewStreamEmitter(os.Stdout))

	err := producer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
