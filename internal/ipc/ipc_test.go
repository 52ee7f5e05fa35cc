package ipc_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capdeck/internal/daemon"
	"capdeck/internal/ipc"
	"capdeck/internal/logging"
	"capdeck/internal/messages"
	"capdeck/internal/settings"
	"capdeck/internal/testsupport"
)

type stubRunner struct{}

func (stubRunner) Output(context.Context, []string) (string, error) {
	return "Auto-detected sources for v4l2:\n* /dev/video0 [Integrated Camera: Integrated C]\n", nil
}

func startServer(t *testing.T) (*ipc.Client, *daemon.Daemon) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Capture.GracePeriodMs = 20
	cfg.Capture.ListTimeoutSeconds = 5
	err := settings.NewStore(cfg.SettingsPath()).SaveCapture(settings.Capture{
		Device: "/dev/video0", Width: 2, Height: 1, FrameRate: "30", PixelFormat: "bgr0",
	})
	if err != nil {
		t.Fatalf("save capture: %v", err)
	}

	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger, daemon.Options{Launcher: testsupport.NewFakeLauncher(), Runner: stubRunner{}})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	socket := filepath.Join(cfg.Paths.StateDir, "capdeck.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, d
}

func TestIPCServerClient(t *testing.T) {
	client, _ := startServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.Phase != "idle" || status.Backend != "v4l2" {
		t.Fatalf("unexpected status %+v", status)
	}

	photo, err := client.Photo()
	if err != nil {
		t.Fatalf("Photo RPC failed: %v", err)
	}
	if len(photo.Notices) != 1 || photo.Notices[0].Key != messages.PhotoWhenIdle {
		t.Fatalf("expected idle photo notice, got %+v", photo.Notices)
	}

	enabled, err := client.SetEnabled(true)
	if err != nil {
		t.Fatalf("SetEnabled RPC failed: %v", err)
	}
	if !enabled.Accepted || enabled.Phase != "previewing" {
		t.Fatalf("unexpected enable response %+v", enabled)
	}

	record, err := client.Record(ipc.RecordToggle)
	if err != nil {
		t.Fatalf("Record RPC failed: %v", err)
	}
	if record.Phase != "previewing" || len(record.Notices) != 1 || record.Notices[0].Key != messages.RecordWithoutSelection {
		t.Fatalf("expected selection notice, got %+v", record)
	}

	paused, err := client.Preview(ipc.PreviewPause)
	if err != nil {
		t.Fatalf("Preview RPC failed: %v", err)
	}
	if paused.Phase != "paused_previewing" {
		t.Fatalf("phase after pause got %q", paused.Phase)
	}

	if _, err := client.Preview("sideways"); err == nil {
		t.Fatal("expected unknown preview action to fail")
	}

	shown, err := client.Settings()
	if err != nil {
		t.Fatalf("Settings RPC failed: %v", err)
	}
	if !shown.Shown || shown.Settings.Device != "/dev/video0" || shown.Settings.PixelFormat != "bgr0" {
		t.Fatalf("unexpected settings %+v", shown)
	}

	devices, err := client.Devices()
	if err != nil {
		t.Fatalf("Devices RPC failed: %v", err)
	}
	if len(devices.Devices) != 1 || devices.Devices[0].ID != "/dev/video0" {
		t.Fatalf("unexpected devices %+v", devices)
	}
}

func TestIPCSelectionAndMedia(t *testing.T) {
	client, d := startServer(t)

	sel, err := client.Select("12")
	if err != nil {
		t.Fatalf("Select RPC failed: %v", err)
	}
	if sel.Selection != "12" {
		t.Fatalf("selection got %q", sel.Selection)
	}
	if _, err := client.Select("../x"); err == nil {
		t.Fatal("expected invalid selection to fail")
	}

	d.Library().VideoAdded(filepath.Join(t.TempDir(), "gone.mp4"))

	list, err := client.MediaList(ipc.MediaListRequest{Target: "12"})
	if err != nil {
		t.Fatalf("MediaList RPC failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Kind != "video" || len(list.Targets) != 1 {
		t.Fatalf("unexpected media list %+v", list)
	}

	pruned, err := client.MediaList(ipc.MediaListRequest{Prune: true})
	if err != nil {
		t.Fatalf("MediaList prune failed: %v", err)
	}
	if pruned.Pruned != 1 || len(pruned.Items) != 0 {
		t.Fatalf("unexpected prune result %+v", pruned)
	}

	cleared, err := client.Select("")
	if err != nil {
		t.Fatalf("deselect failed: %v", err)
	}
	if cleared.Selection != "" {
		t.Fatalf("expected no selection, got %q", cleared.Selection)
	}
}

func TestDialMissingSocket(t *testing.T) {
	_, err := ipc.Dial(filepath.Join(t.TempDir(), "missing.sock"))
	if err == nil {
		t.Fatal("expected dial error")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("expected immediate failure, got timeout: %v", err)
	}
}
