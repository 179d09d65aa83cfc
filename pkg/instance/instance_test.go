package instance

import "testing"

func TestGetIDUsesConfiguredValue(t *testing.T) {
	t.Setenv("HOMEQUOTE_WORKER_ID", "cron-7")

	if got := GetID(); got != "cron-7" {
		t.Fatalf("expected configured id, got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("HOMEQUOTE_WORKER_ID", "")
	t.Setenv("WORKER_ID", "")

	if GetID() == "" {
		t.Fatal("expected a non-empty id")
	}
}
