// Package fusion joins the two producer streams into analyzed moments:
// every context sample is paired with the freshest focus verdict,
// labeled by the classifiers, persisted, and published.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/internal/store"
	"github.com/focusguard/focusd/pkg/classify"
	"github.com/focusguard/focusd/pkg/record"
)

// ErrProducersDead means both producer streams went silent and their
// processes are gone; the pipeline cannot recover without a restart.
var ErrProducersDead = errors.New("producers are no longer alive")

// Sink persists analyzed moments. *store.Store satisfies it.
type Sink interface {
	InsertMoment(ctx context.Context, m store.Moment) (int64, error)
}

// Sessions exposes the active session id, "" when idle. Moments are
// only persisted while a session is running.
type Sessions interface {
	CurrentID() string
}

// Publisher receives live pipeline output for UIs.
type Publisher interface {
	PublishFocus(record.FocusRecord)
	PublishContext(record.ContextRecord)
	PublishMoment(store.Moment)
}

// Config tunes the fusion loop.
type Config struct {
	// ReceiveTimeout bounds a silent stretch before liveness is probed.
	ReceiveTimeout time.Duration

	// ClassifyTimeout bounds one classifier round trip.
	ClassifyTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ReceiveTimeout:  time.Second,
		ClassifyTimeout: 10 * time.Second,
	}
}

// Loop is the single consumer of the record stream.
type Loop struct {
	cfg      Config
	records  <-chan record.Record
	prod     classify.ProductivityClassifier
	services classify.ServiceExtractor
	sink     Sink
	sessions Sessions
	pub      Publisher
	alive    func() bool
	logger   *slog.Logger

	latestFocus *record.FocusRecord
}

// New assembles a fusion loop. alive reports whether the producers are
// still running; pub may be nil.
func New(cfg Config, records <-chan record.Record, prod classify.ProductivityClassifier,
	services classify.ServiceExtractor, sink Sink, sessions Sessions,
	pub Publisher, alive func() bool) *Loop {

	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = DefaultConfig().ReceiveTimeout
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultConfig().ClassifyTimeout
	}
	return &Loop{
		cfg:      cfg,
		records:  records,
		prod:     prod,
		services: services,
		sink:     sink,
		sessions: sessions,
		pub:      pub,
		alive:    alive,
		logger:   log.L().With("component", "fusion"),
	}
}

// Run consumes records until the context is canceled, a producer
// reports a fatal error, or both producers die silently.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(l.cfg.ReceiveTimeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(l.cfg.ReceiveTimeout)

		select {
		case <-ctx.Done():
			return ctx.Err()

		case rec, ok := <-l.records:
			if !ok {
				return ErrProducersDead
			}
			if err := l.handle(ctx, rec); err != nil {
				return err
			}

		case <-timer.C:
			if l.alive != nil && !l.alive() {
				return ErrProducersDead
			}
		}
	}
}

func (l *Loop) handle(ctx context.Context, rec record.Record) error {
	switch r := rec.(type) {
	case record.FocusRecord:
		l.latestFocus = &r
		if l.pub != nil {
			l.pub.PublishFocus(r)
		}
		return nil

	case record.ContextRecord:
		if l.pub != nil {
			l.pub.PublishContext(r)
		}
		return l.fuse(ctx, r)

	case record.ErrorRecord:
		return fmt.Errorf("%s producer failed: %s", r.Origin, r.Message)

	default:
		l.logger.Warn("dropping unknown record", "type", fmt.Sprintf("%T", rec))
		return nil
	}
}

// fuse pairs the context sample with the freshest focus verdict. A
// context sample with no focus verdict yet is dropped: there is
// nothing meaningful to label.
func (l *Loop) fuse(ctx context.Context, c record.ContextRecord) error {
	if l.latestFocus == nil {
		l.logger.Debug("context sample before first focus verdict, dropping")
		return nil
	}
	f := *l.latestFocus

	moment := store.Moment{
		SessionID:      l.sessions.CurrentID(),
		Timestamp:      c.Timestamp,
		FocusStatus:    string(f.Status),
		FocusReason:    f.Reason,
		DistractionPct: f.DistractionPct,
		Emotion:        f.Emotion,
		AppName:        c.AppName,
		WindowTitle:    c.WindowTitle,
		URL:            c.URL,
		OCRText:        c.OCRText,
	}
	moment.Service, moment.Productivity = l.label(ctx, f, c)

	if moment.SessionID != "" {
		id, err := l.sink.InsertMoment(ctx, moment)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				return fmt.Errorf("persist moment: %w", err)
			}
			l.logger.Error("persist moment failed", "error", err)
		} else {
			moment.ID = id
		}
	}

	if l.pub != nil {
		l.pub.PublishMoment(moment)
	}
	return nil
}

// label runs both classifiers. Failures degrade to the Unknown
// sentinel so the moment is still recorded.
func (l *Loop) label(ctx context.Context, f record.FocusRecord, c record.ContextRecord) (service, productivity string) {
	cctx, cancel := context.WithTimeout(ctx, l.cfg.ClassifyTimeout)
	defer cancel()

	service, err := l.services.PredictService(cctx, c.AppName, c.WindowTitle, c.URL)
	if err != nil {
		l.logger.Warn("service extraction failed", "error", err)
		service = classify.LabelUnknown
	}

	productivity, err = l.prod.PredictProductivity(cctx, f, c)
	if err != nil {
		l.logger.Warn("productivity classification failed", "error", err)
		productivity = classify.LabelUnknown
	}
	return service, productivity
}
