package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/nguyenthanhak8-hue/LSTD/internal/config"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown := Setup("kiosk-service", config.Config{}, logger)
	if shutdown == nil {
		t.Fatal("expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}
