package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/config"
)

func TestSetupWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stockd.log")
	closer, err := Setup(config.LoggingConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() {
		_ = closer.Close()
		log.SetOutput(os.Stdout)
		log.SetLevel(log.InfoLevel)
	})

	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	log.WithField("component", "test").Info("hello rotation")

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		t.Fatalf("read log file: %v", errRead)
	}
	if !strings.Contains(string(data), `"msg":"hello rotation"`) {
		t.Fatalf("expected json log line, got %q", string(data))
	}
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	if _, err := Setup(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := Setup(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
}
