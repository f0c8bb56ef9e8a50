package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init("loud", ""); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "softrast.log")
	cfg := DefaultFileConfig(logFile)
	cfg.Compress = false

	if err := InitWithFileConfig("info", cfg, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { Log, Sugar = zap.NewNop(), zap.NewNop().Sugar() })

	Debug("hidden below info")
	Info("frame rendered", zap.Int("pixels", 42))
	Named("render").Warn("camera stale")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden below info") {
		t.Error("debug entry written at info level")
	}
	for _, want := range []string{"INFO", "frame rendered", "pixels", "WARN", "render", "camera stale"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestLogRotation(t *testing.T) {
	if testing.Short() {
		t.Skip("writes over a megabyte of logs")
	}
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "test.log")

	// 1 MB is the smallest size lumberjack allows.
	cfg := FileConfig{
		Path:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 2,
		MaxAgeDays: 1,
	}
	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { Log, Sugar = zap.NewNop(), zap.NewNop().Sugar() })

	long := strings.Repeat("x", 200)
	for i := range 15000 {
		Sugar.Infof("entry %d: %s", i, long)
	}
	Sync()

	files, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	var logs []string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "test") && strings.Contains(f.Name(), ".log") {
			logs = append(logs, f.Name())
		}
	}
	if len(logs) < 2 {
		t.Errorf("expected a rotated file, got %v", logs)
	}
}

func TestNopBeforeInit(t *testing.T) {
	Log, Sugar = zap.NewNop(), zap.NewNop().Sugar()
	// Must not panic.
	Info("ignored")
	Sync()
}
