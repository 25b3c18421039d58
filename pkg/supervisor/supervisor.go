// Package supervisor runs the producer workers as child processes and
// bridges their stdout record streams back into the parent.
//
// Workers are the same binary invoked with a hidden subcommand; each
// crash is isolated from the parent, and native library instability in
// the capture stacks cannot take down the recorder.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/pkg/record"
)

// ErrNotReady is returned when a worker never completes its readiness
// handshake, whether it timed out or exited first.
var ErrNotReady = errors.New("worker not ready")

// Config tunes process lifecycle handling.
type Config struct {
	// ReadyTimeout bounds how long a worker may take to initialize.
	// Camera and model warm-up dominate this.
	ReadyTimeout time.Duration

	// StopTimeout bounds the graceful SIGTERM window before SIGKILL.
	StopTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout: 90 * time.Second,
		StopTimeout:  5 * time.Second,
	}
}

// Supervisor owns the worker processes and the merged record stream.
type Supervisor struct {
	cfg     Config
	records chan record.Record
	logger  *slog.Logger

	// stop unblocks the scanner goroutines once the consumer is gone;
	// without it a full records buffer would wedge consume mid-send and
	// Stop could never observe the worker exit.
	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	workers map[record.Source]*worker
}

type worker struct {
	source record.Source
	cmd    *exec.Cmd
	ready  chan struct{}
	done   chan struct{}
}

// New creates a supervisor. The records channel is buffered so a
// briefly stalled consumer does not block the scanner goroutines.
func New(cfg Config) *Supervisor {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultConfig().ReadyTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}
	return &Supervisor{
		cfg:     cfg,
		records: make(chan record.Record, 64),
		logger:  log.L().With("component", "supervisor"),
		stop:    make(chan struct{}),
		workers: make(map[record.Source]*worker),
	}
}

// Records is the merged stream from all workers.
func (s *Supervisor) Records() <-chan record.Record {
	return s.records
}

// Start spawns one worker process for the source. The worker is the
// current binary re-invoked with the matching subcommand.
func (s *Supervisor) Start(source record.Source, extraArgs ...string) error {
	bin, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := append([]string{"worker", workerName(source)}, extraArgs...)
	cmd := exec.Command(bin, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe for %s worker: %w", source, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s worker: %w", source, err)
	}

	w := &worker{
		source: source,
		cmd:    cmd,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.workers[source] = w
	s.mu.Unlock()

	s.logger.Info("worker started", "source", source, "pid", cmd.Process.Pid)

	go func() {
		s.consume(stdout, w)
		err := cmd.Wait()
		close(w.done)
		s.logger.Info("worker exited", "source", source, "error", err)
	}()

	return nil
}

// consume scans one worker's stdout, decoding NDJSON envelopes into
// the merged stream. Non-envelope lines (stray native-library output)
// are logged and skipped.
func (s *Supervisor) consume(r io.Reader, w *worker) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	readySeen := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		env, err := record.ParseEnvelope(line)
		if err != nil {
			s.logger.Warn("unparseable worker output", "source", w.source, "line", string(line))
			continue
		}

		if env.Type == record.TypeReady {
			if !readySeen {
				readySeen = true
				close(w.ready)
			}
			continue
		}

		rec, err := env.Unwrap()
		if err != nil {
			s.logger.Warn("bad worker envelope", "source", w.source, "error", err)
			continue
		}
		select {
		case s.records <- rec:
		case <-s.stop:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("worker stream closed", "source", w.source, "error", err)
	}
}

// WaitReady blocks until every started worker has posted its readiness
// handshake, or fails when one exits or times out first.
func (s *Supervisor) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	deadline := time.After(s.cfg.ReadyTimeout)
	for _, w := range workers {
		select {
		case <-w.ready:
		case <-w.done:
			return fmt.Errorf("%w: %s worker exited before becoming ready", ErrNotReady, w.source)
		case <-deadline:
			return fmt.Errorf("%w: %s worker gave no handshake within %s", ErrNotReady, w.source, s.cfg.ReadyTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Alive reports whether at least one worker process is still running.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.workers {
		select {
		case <-w.done:
		default:
			return true
		}
	}
	return false
}

// Stop terminates all workers: SIGTERM, a bounded join, then SIGKILL
// for stragglers. It also releases any scanner goroutine blocked on an
// undrained records buffer, so the join completes even when nobody is
// consuming the stream anymore.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		select {
		case <-w.done:
			continue
		default:
		}
		if err := w.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.logger.Warn("signal worker", "source", w.source, "error", err)
		}
	}

	deadline := time.After(s.cfg.StopTimeout)
	for _, w := range workers {
		select {
		case <-w.done:
		case <-deadline:
			s.logger.Warn("worker ignored SIGTERM, killing", "source", w.source)
			_ = w.cmd.Process.Kill()
			<-w.done
		}
	}
}

// workerName maps a record source to its subcommand name.
func workerName(source record.Source) string {
	switch source {
	case record.SourceFocus:
		return "vision"
	case record.SourceScreen:
		return "screen"
	default:
		return string(source)
	}
}
