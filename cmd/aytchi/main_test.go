package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReconnectDelayGrowsLinearly(t *testing.T) {
	for attempt := 1; attempt <= maxStartAttempts; attempt++ {
		want := time.Duration(attempt) * startRetryDelay
		if got := reconnectDelay(attempt); got != want {
			t.Errorf("reconnectDelay(%d) = %s, want %s", attempt, got, want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.Contains(out.String(), version) {
		t.Errorf("version output = %q, want it to contain %q", out.String(), version)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	configPath = path
	defer func() { configPath = "" }()

	var out bytes.Buffer
	initCmd.SetOut(&out)
	if err := initCmd.RunE(initCmd, nil); err != nil {
		t.Fatalf("init error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	// Second init refuses to overwrite.
	if err := initCmd.RunE(initCmd, nil); err == nil {
		t.Error("expected error when config already exists")
	}
}
