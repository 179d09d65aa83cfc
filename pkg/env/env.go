package env

import (
	"os"
	"strings"
)

// Prefix namespaces process-level variables read outside envconfig.
const Prefix = "HOMEQUOTE_"

// Get returns the prefixed variable, then the bare one, then fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
