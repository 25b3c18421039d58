package classify

import (
	"context"

	"github.com/focusguard/focusd/pkg/record"
)

// Mock is a test double for all three classifier interfaces. Unset
// funcs fall back to fixed labels.
type Mock struct {
	ProductivityFunc func(ctx context.Context, f record.FocusRecord, c record.ContextRecord) (string, error)
	ServiceFunc      func(ctx context.Context, app, title, url string) (string, error)
	EmotionFunc      func(ctx context.Context, features []float64) (string, error)

	ProductivityCalls int
	ServiceCalls      int
	EmotionCalls      int
}

// PredictProductivity implements ProductivityClassifier.
func (m *Mock) PredictProductivity(ctx context.Context, f record.FocusRecord, c record.ContextRecord) (string, error) {
	m.ProductivityCalls++
	if m.ProductivityFunc != nil {
		return m.ProductivityFunc(ctx, f, c)
	}
	return LabelProductive, nil
}

// PredictService implements ServiceExtractor.
func (m *Mock) PredictService(ctx context.Context, app, title, url string) (string, error) {
	m.ServiceCalls++
	if m.ServiceFunc != nil {
		return m.ServiceFunc(ctx, app, title, url)
	}
	return app, nil
}

// PredictEmotion implements EmotionClassifier.
func (m *Mock) PredictEmotion(ctx context.Context, features []float64) (string, error) {
	m.EmotionCalls++
	if m.EmotionFunc != nil {
		return m.EmotionFunc(ctx, features)
	}
	return "neutral", nil
}
