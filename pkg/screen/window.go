// Package screen samples the user's desktop context: the active window,
// its app and title, a best-effort URL, and on-screen text via OCR.
package screen

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Window describes the currently focused desktop window.
type Window struct {
	App   string
	Title string

	// Region is the window's screen rectangle. HasRegion is false when
	// geometry could not be determined, which disables OCR for the
	// sample.
	Region    image.Rectangle
	HasRegion bool
}

// Querier resolves the active window. Implementations shell out to
// desktop tooling, so every call takes a context.
type Querier interface {
	ActiveWindow(ctx context.Context) (Window, error)
}

// X11Querier reads the active window through xdotool and xprop.
type X11Querier struct{}

// ActiveWindow implements Querier.
func (X11Querier) ActiveWindow(ctx context.Context) (Window, error) {
	id, err := runLine(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return Window{}, fmt.Errorf("query active window: %w", err)
	}

	var w Window
	if title, err := runLine(ctx, "xdotool", "getwindowname", id); err == nil {
		w.Title = title
	}
	if class, err := runLine(ctx, "xprop", "-id", id, "WM_CLASS"); err == nil {
		w.App = parseWMClass(class)
	}
	if geom, err := run(ctx, "xdotool", "getwindowgeometry", "--shell", id); err == nil {
		w.Region, w.HasRegion = parseGeometry(geom)
	}

	return w, nil
}

func run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

func runLine(ctx context.Context, name string, args ...string) (string, error) {
	out, err := run(ctx, name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// parseWMClass extracts the application class from xprop output of the
// form: WM_CLASS(STRING) = "instance", "Class".
func parseWMClass(out string) string {
	parts := strings.Split(out, "\"")
	// The class name is the last quoted token.
	if len(parts) >= 4 {
		return parts[3]
	}
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}

// parseGeometry parses xdotool's --shell output (X=, Y=, WIDTH=,
// HEIGHT= lines) into a screen rectangle.
func parseGeometry(out string) (image.Rectangle, bool) {
	vars := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			continue
		}
		vars[key] = n
	}

	w, h := vars["WIDTH"], vars["HEIGHT"]
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	x, y := vars["X"], vars["Y"]
	return image.Rect(x, y, x+w, y+h), true
}

var urlPattern = regexp.MustCompile(`https?://[^\s"']+|[a-z0-9][a-z0-9.-]*\.(?:com|org|net|io|dev|co|edu|gov)(?:/[^\s"']*)?`)

var urlBearingApps = []string{"chrome", "chromium", "firefox", "msedge", "brave", "safari"}

// ResolveURL extracts a best-effort URL from a browser window title.
// Non-browser windows never yield a URL.
func ResolveURL(app, title string) string {
	lower := strings.ToLower(app)
	browser := false
	for _, b := range urlBearingApps {
		if strings.Contains(lower, b) {
			browser = true
			break
		}
	}
	if !browser {
		return ""
	}
	return urlPattern.FindString(strings.ToLower(title))
}
