package config

import "strings"

// envKeyToPath maps FOCUSD_SCREEN__INTERVAL to "screen.interval".
// A double underscore separates nesting levels so single underscores
// survive inside key names.
func envKeyToPath(s string) string {
	s = strings.TrimPrefix(s, "FOCUSD_")
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
