package instance

import (
	"os"

	"github.com/angelmondragon/homequote-backend/pkg/env"
)

const defaultID = "worker-0"

// GetID identifies the running worker in logs and lock ownership.
// WORKER_ID wins, then the hostname.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
