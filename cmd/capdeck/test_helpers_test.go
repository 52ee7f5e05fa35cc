package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"capdeck/internal/config"
	"capdeck/internal/daemon"
	"capdeck/internal/ipc"
	"capdeck/internal/logging"
	"capdeck/internal/settings"
	"capdeck/internal/testsupport"
)

type stubRunner struct{}

func (stubRunner) Output(context.Context, []string) (string, error) {
	return "Auto-detected sources for v4l2:\n* /dev/video0 [Integrated Camera: Integrated C]\n", nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	launcher   *testsupport.FakeLauncher
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Capture.GracePeriodMs = 20
	cfg.Capture.ListTimeoutSeconds = 5
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.AlternativePhotoRoot, 0o755); err != nil {
		t.Fatalf("mkdir alternative photo root: %v", err)
	}
	err := settings.NewStore(cfg.SettingsPath()).SaveCapture(settings.Capture{
		Device: "/dev/video0", Width: 2, Height: 1, FrameRate: "30", PixelFormat: "bgr0",
	})
	if err != nil {
		t.Fatalf("save capture: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "capdeck", "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	launcher := testsupport.NewFakeLauncher()
	d, err := daemon.New(cfg, logger, daemon.Options{Launcher: launcher, Runner: stubRunner{}})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		d.Close()
		t.Fatalf("daemon start: %v", err)
	}

	socketPath := filepath.Join(cfg.Paths.StateDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		launcher:   launcher,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
