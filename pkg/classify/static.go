package classify

import (
	"context"
	"strings"

	"github.com/focusguard/focusd/pkg/focus"
	"github.com/focusguard/focusd/pkg/record"
)

// Static is the zero-dependency fallback used when no model server is
// configured. Its heuristics are deliberately coarse; they keep the
// pipeline end-to-end functional and share the model vocabulary.
type Static struct{}

// NewStatic creates the fallback classifier set.
func NewStatic() *Static { return &Static{} }

var productiveApps = []string{
	"code", "vim", "emacs", "intellij", "goland", "pycharm", "terminal",
	"gnome-terminal", "konsole", "alacritty", "kitty", "jetbrains",
	"libreoffice", "obsidian", "notion",
}

var unproductiveHints = []string{
	"youtube", "netflix", "twitch", "tiktok", "instagram", "reddit",
	"twitter", "facebook", "steam", "game",
}

// PredictProductivity implements ProductivityClassifier with a
// keyword heuristic: an absent or distracted user is unproductive, a
// known entertainment surface is unproductive, known work tools are
// productive, everything else defaults to productive.
func (s *Static) PredictProductivity(_ context.Context, f record.FocusRecord, c record.ContextRecord) (string, error) {
	if f.Status == focus.StatusNoFace {
		return LabelUnproductive, nil
	}
	haystack := strings.ToLower(c.AppName + " " + c.WindowTitle + " " + c.URL)
	for _, hint := range unproductiveHints {
		if strings.Contains(haystack, hint) {
			return LabelUnproductive, nil
		}
	}
	if f.Status == focus.StatusDistracted {
		return LabelUnproductive, nil
	}
	for _, app := range productiveApps {
		if strings.Contains(haystack, app) {
			return LabelProductive, nil
		}
	}
	return LabelProductive, nil
}

// PredictService implements ServiceExtractor by parsing the window
// title per app family.
func (s *Static) PredictService(_ context.Context, app, title, url string) (string, error) {
	if svc := ServiceFromTitle(app, title); svc != "" {
		return svc, nil
	}
	if app != "" {
		return app, nil
	}
	return LabelUnknown, nil
}

// PredictEmotion implements EmotionClassifier. Without a trained
// model there is nothing to infer from raw distances.
func (s *Static) PredictEmotion(context.Context, []float64) (string, error) {
	return "neutral", nil
}

var browserApps = []string{"chrome", "chromium", "firefox", "msedge", "brave", "safari"}
var editorApps = []string{"code", "codium", "subl", "atom"}

// ServiceFromTitle extracts the human-meaningful part of a window
// title. Browsers append " - <Browser>" which is dropped; editors
// lead with the file name which is kept.
func ServiceFromTitle(app, title string) string {
	lower := strings.ToLower(app)
	parts := strings.Split(title, " - ")

	for _, b := range browserApps {
		if strings.Contains(lower, b) {
			if len(parts) > 1 {
				return strings.TrimSpace(strings.Join(parts[:len(parts)-1], " - "))
			}
			return strings.TrimSpace(title)
		}
	}
	for _, e := range editorApps {
		if strings.Contains(lower, e) {
			if len(parts) > 1 {
				return strings.TrimSpace(parts[0])
			}
			return strings.TrimSpace(title)
		}
	}
	return strings.TrimSpace(title)
}
