package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samvad-hq/samvad-graph-harvester/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvester.log")
	sugar, err := Init(&config.Config{LogLevel: "debug", LogFile: path, LogMaxSizeMB: 1, LogMaxBackups: 1})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer func() { S = nil }()

	NewZapLogger(sugar).InfoObj("snapshot stored", "snapshot_meta", map[string]any{"job_id": "core"})
	ErrorObj("harvester run failed", "error", "backend down")
	_ = sugar.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"msg":"snapshot stored"`) || !strings.Contains(line, `"job_id":"core"`) {
		t.Fatalf("unexpected log line %s", line)
	}
	if !strings.Contains(line, `"msg":"harvester run failed"`) || !strings.Contains(line, `"error":"backend down"`) {
		t.Fatalf("expected package-level helper output, got %s", line)
	}
	if !strings.Contains(line, `"ts":`) {
		t.Fatalf("expected ts key, got %s", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	S = nil
	InfoObj("x", "k", 1)
	ErrorObj("x", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
	var l Logger = NopLogger{}
	l.WarnObj("x", "k", nil)
}
