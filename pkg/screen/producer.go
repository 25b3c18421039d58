package screen

import (
	"context"
	"log/slog"
	"time"

	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/pkg/record"
)

// Sentinel OCR text values. They travel in the ocr_text field so the
// productivity model sees why content is missing instead of a silent
// blank.
const (
	TextNoRegion  = "[No Valid Window Region]"
	TextNoText    = "[No Text Detected]"
	TextOCRFailed = "[OCR FAILED]"
)

// ProducerConfig configures the context sampling loop.
type ProducerConfig struct {
	// Interval between samples. This is the pacing clock of the whole
	// fusion pipeline.
	Interval time.Duration

	// OCREnabled gates screen-text extraction.
	OCREnabled bool

	// OCRTimeout bounds a single grab+recognize step.
	OCRTimeout time.Duration
}

// DefaultProducerConfig returns production defaults.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Interval:   5 * time.Second,
		OCREnabled: true,
		OCRTimeout: 2500 * time.Millisecond,
	}
}

// Producer periodically samples the active window and emits context
// records. Sampling errors degrade to sentinel values; the loop only
// stops on context cancellation.
type Producer struct {
	cfg     ProducerConfig
	windows Querier
	ocr     OCR // nil when OCR is disabled
	emitter record.Emitter
	logger  *slog.Logger
}

// NewProducer assembles the context loop. ocr may be nil.
func NewProducer(cfg ProducerConfig, windows Querier, ocr OCR, emitter record.Emitter) *Producer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProducerConfig().Interval
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = DefaultProducerConfig().OCRTimeout
	}
	return &Producer{
		cfg:     cfg,
		windows: windows,
		ocr:     ocr,
		emitter: emitter,
		logger:  log.L().With("component", "screen"),
	}
}

// Run samples until the context is canceled. The producer has no
// expensive initialization, so it reports ready immediately and emits
// its first sample without waiting for the first tick.
func (p *Producer) Run(ctx context.Context) error {
	p.emitter.Ready()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.sample(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sample takes one context snapshot and emits it.
func (p *Producer) sample(ctx context.Context) {
	qctx, cancel := context.WithTimeout(ctx, p.cfg.Interval)
	defer cancel()

	rec := record.ContextRecord{Timestamp: time.Now()}

	win, err := p.windows.ActiveWindow(qctx)
	if err != nil {
		p.logger.Warn("active window query failed", "error", err)
		rec.OCRText = TextNoRegion
		p.emitter.Emit(rec)
		return
	}

	rec.AppName = win.App
	rec.WindowTitle = win.Title
	rec.URL = ResolveURL(win.App, win.Title)

	if p.cfg.OCREnabled && p.ocr != nil {
		rec.OCRText = p.extractText(ctx, win)
	}

	p.emitter.Emit(rec)
}

func (p *Producer) extractText(ctx context.Context, win Window) string {
	if !win.HasRegion {
		return TextNoRegion
	}

	octx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	defer cancel()

	text, err := p.ocr.Text(octx, win.Region)
	if err != nil {
		p.logger.Warn("ocr failed", "app", win.App, "error", err)
		return TextOCRFailed
	}
	if text == "" {
		return TextNoText
	}
	return text
}
