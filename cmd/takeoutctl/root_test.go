package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/takeoutools/takeoutctl/internal/config"
	"github.com/takeoutools/takeoutctl/internal/engine"
)

func TestNewRootCmdSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := map[string]bool{"fetch": false, "status": false, "config": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestConfigInitWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "takeoutctl.yaml")
	configInitPath = path

	if err := configInitRun(nil, nil); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Job.MaxIndex != 277 {
		t.Errorf("MaxIndex = %d, want default 277", cfg.Job.MaxIndex)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "takeoutctl.yaml")
	if err := os.WriteFile(path, []byte("job: {}"), 0644); err != nil {
		t.Fatalf("writing existing file: %v", err)
	}
	configInitPath = path

	if err := configInitRun(nil, nil); err == nil {
		t.Error("expected refusal to overwrite existing config")
	}
}

func TestFetchRunRangeValidation(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	globalCfg = config.DefaultConfig()
	globalCfg.Job.ID = "aad05205-2695-41f5-a4d7-b92d9a095d5e"
	globalEngine = engine.New(nil, nil, nil, logger)
	t.Cleanup(func() {
		globalCfg = nil
		globalEngine = nil
	})

	tests := []struct {
		name         string
		start, end   int
		continueFlag bool
	}{
		{"start below one", 0, 5, false},
		{"end beyond max", 1, 500, false},
		{"start past end", 9, 3, false},
	}

	for _, tt := range tests {
		cmd := newFetchCmd() // registering flags resets the package vars
		fetchStart, fetchEnd, fetchContinue = tt.start, tt.end, tt.continueFlag
		if err := fetchRun(cmd, nil); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}
