// Package classify wraps the external label models behind small
// interfaces: productivity, service extraction, and emotion. The
// models themselves are black boxes reached over HTTP; a static
// fallback keeps the pipeline running without a model server.
package classify

import (
	"context"
	"fmt"

	"github.com/focusguard/focusd/pkg/record"
)

// Productivity labels.
const (
	LabelProductive   = "Productive"
	LabelUnproductive = "Unproductive"

	// LabelUnknown is the sentinel applied when a classifier fails;
	// the moment is still persisted so session summaries stay
	// internally consistent.
	LabelUnknown = "Unknown"
)

// ProductivityClassifier labels a fused focus+context sample.
type ProductivityClassifier interface {
	PredictProductivity(ctx context.Context, f record.FocusRecord, c record.ContextRecord) (string, error)
}

// ServiceExtractor names the service/site the user is interacting
// with from window metadata.
type ServiceExtractor interface {
	PredictService(ctx context.Context, app, title, url string) (string, error)
}

// EmotionClassifier labels a normalized facial-geometry feature
// vector.
type EmotionClassifier interface {
	PredictEmotion(ctx context.Context, features []float64) (string, error)
}

// ProductivityPrompt renders the fused sample in the exact text form
// the productivity model was trained on.
func ProductivityPrompt(f record.FocusRecord, c record.ContextRecord) string {
	return fmt.Sprintf(
		"[FOCUS]: %s [REASON]: %s [EMOTION]: %s [APP]: %s [TITLE]: %s [CONTENT]: %s",
		f.Status, f.Reason, f.Emotion, c.AppName, c.WindowTitle, c.OCRText,
	)
}

// ServicePrompt renders the window metadata in the service extractor's
// training format, including its task prefix.
func ServicePrompt(app, title, url string) string {
	return fmt.Sprintf("extract service: [APP]: %s [TITLE]: %s [URL]: %s", app, title, url)
}
