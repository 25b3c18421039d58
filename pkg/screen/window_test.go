package screen

import (
	"image"
	"testing"
)

func TestParseWMClass(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"normal", `WM_CLASS(STRING) = "navigator", "Firefox"`, "Firefox"},
		{"single value", `WM_CLASS(STRING) = "xterm"`, "xterm"},
		{"empty", "", ""},
		{"no quotes", "WM_CLASS: not found", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseWMClass(tt.in); got != tt.want {
				t.Errorf("parseWMClass(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseGeometry(t *testing.T) {
	out := "WINDOW=1234\nX=100\nY=200\nWIDTH=800\nHEIGHT=600\nSCREEN=0\n"
	rect, ok := parseGeometry(out)
	if !ok {
		t.Fatal("parseGeometry failed")
	}
	want := image.Rect(100, 200, 900, 800)
	if rect != want {
		t.Errorf("rect = %v, want %v", rect, want)
	}
}

func TestParseGeometryInvalid(t *testing.T) {
	tests := []struct {
		name, in string
	}{
		{"empty", ""},
		{"zero size", "X=0\nY=0\nWIDTH=0\nHEIGHT=0\n"},
		{"garbage", "not shell output"},
		{"missing size", "X=10\nY=10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseGeometry(tt.in); ok {
				t.Error("accepted invalid geometry")
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name, app, title, want string
	}{
		{"full url in title", "Google-chrome", "https://github.com/pulls - Chrome", "https://github.com/pulls"},
		{"bare domain", "firefox", "Issues · github.com/focusguard", "github.com/focusguard"},
		{"non-browser never yields", "Code", "https://example.com in a comment", ""},
		{"browser without url", "chromium", "New Tab", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.app, tt.title); got != tt.want {
				t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.app, tt.title, got, tt.want)
			}
		})
	}
}
