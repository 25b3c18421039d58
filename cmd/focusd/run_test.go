package main

import (
	"context"
	"errors"
	"testing"
)

func TestAwaitPipelineWaitsForEveryGoroutine(t *testing.T) {
	errCh := make(chan error, 2)
	errCh <- errors.New("fusion failed")
	errCh <- nil

	cancels := 0
	err := awaitPipeline(errCh, 2, func() { cancels++ })
	if err == nil || err.Error() != "fusion failed" {
		t.Errorf("err = %v, want the fusion failure", err)
	}
	if cancels != 2 {
		t.Errorf("cancel called %d times, want once per exit", cancels)
	}
	if len(errCh) != 0 {
		t.Error("a pipeline result was left unread")
	}
}

func TestAwaitPipelineIgnoresCancellation(t *testing.T) {
	errCh := make(chan error, 2)
	errCh <- context.Canceled
	errCh <- nil

	if err := awaitPipeline(errCh, 2, func() {}); err != nil {
		t.Errorf("err = %v, want nil for a clean shutdown", err)
	}
}

func TestAwaitPipelineKeepsFirstFailure(t *testing.T) {
	errCh := make(chan error, 2)
	errCh <- errors.New("server died")
	errCh <- errors.New("fusion died after cancel")

	err := awaitPipeline(errCh, 2, func() {})
	if err == nil || err.Error() != "server died" {
		t.Errorf("err = %v, want the first failure", err)
	}
}
