package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func initWorkspace(t *testing.T, configYAML string) string {
	t.Helper()
	ws := t.TempDir()
	if configYAML != "" {
		dir := filepath.Join(ws, ".geoverify")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(CloseAll)
	return ws
}

func TestProductionModeIsSilent(t *testing.T) {
	ws := initWorkspace(t, "")

	if IsDebugMode() {
		t.Error("IsDebugMode() = true without a config file")
	}
	l := Get(CategoryDD)
	l.Info("should go nowhere")
	Boot("neither should this")

	if _, err := os.Stat(filepath.Join(ws, ".geoverify", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created in production mode")
	}
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	ws := initWorkspace(t, "logging:\n  debug_mode: true\n  level: debug\n")

	if !IsDebugMode() {
		t.Fatal("IsDebugMode() = false with debug_mode: true")
	}
	Get(CategoryDD).Info("hello from the rule engine")
	Get(CategoryDD).Debug("a debug line")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(ws, ".geoverify", "logs", date+"_dd.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[INFO] hello from the rule engine") {
		t.Errorf("log file missing info line:\n%s", content)
	}
	if !strings.Contains(content, "[DEBUG] a debug line") {
		t.Errorf("log file missing debug line:\n%s", content)
	}
}

func TestLevelFiltering(t *testing.T) {
	ws := initWorkspace(t, "logging:\n  debug_mode: true\n  level: warn\n")

	l := Get(CategoryVerify)
	l.Info("filtered out")
	l.Warn("kept")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(ws, ".geoverify", "logs", date+"_verify.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(string(data), "[WARN] kept") {
		t.Error("warn line missing")
	}
}

func TestCategoryToggle(t *testing.T) {
	initWorkspace(t, "logging:\n  debug_mode: true\n  level: info\n  categories:\n    dd: false\n")

	if IsCategoryEnabled(CategoryDD) {
		t.Error("IsCategoryEnabled(dd) = true when disabled")
	}
	if !IsCategoryEnabled(CategoryVerify) {
		t.Error("IsCategoryEnabled(verify) = false for an unlisted category")
	}
	if l := Get(CategoryDD); l.logger != nil {
		t.Error("Get() returned a live logger for a disabled category")
	}
}

func TestRunLogger(t *testing.T) {
	ws := initWorkspace(t, "logging:\n  debug_mode: true\n  level: info\n")

	rl := WithRunID(CategoryVerify, "abc123").WithField("step", 2)
	rl.Info("checking")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(ws, ".geoverify", "logs", date+"_verify.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "[run:abc123] checking") {
		t.Errorf("run id missing from log:\n%s", data)
	}
}

func TestTimer(t *testing.T) {
	initWorkspace(t, "")

	timer := StartTimer(CategoryDD, "op")
	time.Sleep(time.Millisecond)
	if elapsed := timer.Stop(); elapsed <= 0 {
		t.Errorf("Stop() = %v, want positive duration", elapsed)
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize(""); err == nil {
		t.Error("Initialize(\"\") error = nil")
	}
}
