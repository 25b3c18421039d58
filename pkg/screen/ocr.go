package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/kbinani/screenshot"
	"github.com/otiai10/gosseract/v2"
)

// OCR extracts text from a screen region.
type OCR interface {
	Text(ctx context.Context, region image.Rectangle) (string, error)
	Close() error
}

// TesseractOCR grabs the region as a screenshot and runs it through
// tesseract. A single client is reused across samples; tesseract is
// not reentrant, so calls are serialized.
type TesseractOCR struct {
	client *gosseract.Client
	mu     sync.Mutex
}

// NewTesseractOCR creates the OCR engine.
func NewTesseractOCR() (*TesseractOCR, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR segmentation mode: %w", err)
	}
	return &TesseractOCR{client: client}, nil
}

// Text implements OCR. The context bounds the whole grab+recognize
// step; tesseract itself cannot be interrupted, so a timeout abandons
// the result rather than stopping the work.
func (t *TesseractOCR) Text(ctx context.Context, region image.Rectangle) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		text, err := t.recognize(region)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (t *TesseractOCR) recognize(region image.Rectangle) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	img, err := screenshot.CaptureRect(region)
	if err != nil {
		return "", fmt.Errorf("capture region: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}

	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load screenshot into OCR: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the tesseract client.
func (t *TesseractOCR) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
