package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"capdeck/internal/backend"
	"capdeck/internal/capture"
	"capdeck/internal/facade"
	"capdeck/internal/logging"
	"capdeck/internal/preview"
	"capdeck/internal/process"
	"capdeck/internal/recording"
	"capdeck/internal/relay"
	"capdeck/internal/services"
	"capdeck/internal/settings"
)

// ErrNotPreviewing is returned by operations that need a running session.
var ErrNotPreviewing = errors.New("no preview session")

// SettingsDialog presents the capture settings to the user.
type SettingsDialog interface {
	ShowSettings(current settings.Capture)
}

// Options wires a Manager.
type Options struct {
	Logger   *slog.Logger
	Launcher process.Launcher
	Runner   backend.Runner
	Backend  backend.Backend
	Store    *settings.Store
	// ExecutableDir is used when the stored settings name none.
	ExecutableDir string
	Dialog        SettingsDialog
	// StopTimeout bounds how long a stop waits for a frame boundary.
	StopTimeout time.Duration
}

// Manager implements facade.Media. At most one session is active.
type Manager struct {
	logger      *slog.Logger
	launcher    process.Launcher
	runner      backend.Runner
	backend     backend.Backend
	store       *settings.Store
	execDir     string
	dialog      SettingsDialog
	stopTimeout time.Duration

	mu      sync.Mutex
	active  *pipeline
	stopped []*pipeline
}

var _ facade.Media = (*Manager)(nil)

// New returns a Manager. Launcher, Runner, Backend and Store are required.
func New(opts Options) *Manager {
	return &Manager{
		logger:      logging.NewComponentLogger(opts.Logger, "capture-session"),
		launcher:    opts.Launcher,
		runner:      opts.Runner,
		backend:     opts.Backend,
		store:       opts.Store,
		execDir:     opts.ExecutableDir,
		dialog:      opts.Dialog,
		stopTimeout: opts.StopTimeout,
	}
}

type pipeline struct {
	id       string
	logger   *slog.Logger
	settings settings.Capture
	client   *guardedClient
	sink     *preview.Sink
	relay    *relay.Relay
	consumer capture.Consumer
	source   *capture.Source
	recorder *recording.Recorder
	started  time.Time
}

// StartPreviewing resolves the device, launches capture and starts feeding
// surface. It fails with facade.ErrNoMediaDevice when discovery finds no
// device and with ctx.Err() when ctx ends during discovery.
func (m *Manager) StartPreviewing(ctx context.Context, client facade.Client, surface preview.Surface) error {
	if m.current() != nil {
		return errSessionRunning()
	}

	// Discovery can take up to the listing timeout; status and photo
	// requests must not wait for it.
	cfg, err := m.resolve(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return errSessionRunning()
	}

	id := uuid.NewString()
	p := &pipeline{
		id:       id,
		logger:   m.logger.With(logging.String(logging.FieldSessionID, id)),
		settings: cfg,
		client:   newGuardedClient(client),
		sink:     preview.NewSink(cfg.Width, cfg.Height, surface),
		started:  time.Now(),
	}
	p.consumer = p.sink
	if cfg.NeedsRelay() {
		p.logger.Info("capture pixel format needs conversion; starting relay", logging.String("pixel_format", cfg.PixelFormat))
		r, err := relay.Start(relay.Options{
			Logger:   p.logger,
			Launcher: m.launcher,
			Settings: cfg,
			Sink:     p.sink,
			Client:   p.client,
		})
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "session", "start relay", "could not launch the pixel format relay", err)
		}
		p.relay = r
		p.consumer = r
	}

	source, err := capture.Start(capture.Options{
		Logger:      p.logger,
		Launcher:    m.launcher,
		Settings:    cfg,
		Client:      p.client,
		Classify:    m.backend.ClassifyPreviewError,
		Consumers:   []capture.Consumer{p.consumer},
		StopTimeout: m.stopTimeout,
	})
	if err != nil {
		if p.relay != nil {
			p.relay.Close()
			p.relay.Terminate()
		}
		return services.Wrap(services.ErrExternalTool, "session", "start capture", "could not launch capture", err)
	}
	p.source = source
	go p.releaseRelay()

	m.active = p
	p.logger.Info("preview session started",
		logging.String(logging.FieldDevice, cfg.Device),
		logging.String("video_size", cfg.VideoSize()),
		logging.Bool("relay", p.relay != nil),
	)
	return nil
}

// releaseRelay closes the relay input once capture ends, covering the case
// where the relay was detached by a preview pause and missed CaptureStopped.
func (p *pipeline) releaseRelay() {
	<-p.source.Done()
	if p.relay != nil {
		p.relay.Close()
	}
}

func (p *pipeline) finished() bool {
	for _, done := range p.waits() {
		select {
		case <-done:
		default:
			return false
		}
	}
	return true
}

func (p *pipeline) waits() []<-chan struct{} {
	waits := []<-chan struct{}{p.source.Done()}
	if p.relay != nil {
		waits = append(waits, p.relay.Done())
	}
	if p.recorder != nil {
		waits = append(waits, p.recorder.Done())
	}
	return waits
}

// resolve loads stored settings and runs device discovery when no device is
// stored. A newly chosen device is persisted; persistence failures are
// logged and do not fail the start.
func (m *Manager) resolve(ctx context.Context) (settings.Capture, error) {
	cfg, _, err := m.store.Load()
	if err != nil {
		logging.WarnWithContext(m.logger, "could not load capture settings; rediscovering", "settings_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check "+m.store.Path()),
		)
		cfg = settings.Capture{}
	}
	if strings.TrimSpace(cfg.ExecutableDir) == "" {
		cfg.ExecutableDir = m.execDir
	}

	if !cfg.HasDevice() {
		discovered, devices, err := backend.Discover(ctx, m.runner, m.backend, cfg.Executable())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return settings.Capture{}, ctxErr
			}
			if errors.Is(err, facade.ErrNoMediaDevice) {
				return settings.Capture{}, err
			}
			return settings.Capture{}, services.Wrap(services.ErrExternalTool, "session", "discover devices", "device listing failed", err)
		}
		discovered.ExecutableDir = cfg.ExecutableDir
		cfg = discovered
		m.logger.Info("video device chosen; persisting",
			logging.String(logging.FieldDevice, cfg.Device),
			logging.Int("devices", len(devices)),
		)
		if err := m.store.SaveCapture(cfg); err != nil {
			logging.WarnWithContext(m.logger, "could not persist capture settings", "settings_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the device is discovered again next time"),
			)
		}
	}

	if cfg.Preset == "" {
		cfg.Preset = backend.DefaultPreset
	}
	if cfg.CRF == "" {
		cfg.CRF = backend.DefaultCRF
	}
	return cfg.WithDefaults(m.backend.DefaultTemplates(cfg)), nil
}

// StopPreviewing ends the active session, finishing any recording first.
func (m *Manager) StopPreviewing() {
	m.mu.Lock()
	p := m.active
	m.active = nil
	m.stopped = slices.DeleteFunc(m.stopped, (*pipeline).finished)
	if p != nil {
		m.stopped = append(m.stopped, p)
	}
	m.mu.Unlock()
	if p == nil {
		return
	}
	p.client.stop()
	if p.recorder != nil {
		p.recorder.Stop()
	}
	p.source.Stop()
	p.logger.Info("preview session stopping", logging.Duration("uptime", time.Since(p.started).Round(time.Second)))
}

// PausePreview detaches the preview consumer at the next frame boundary.
func (m *Manager) PausePreview() {
	if p := m.current(); p != nil {
		p.source.RemoveConsumer(p.consumer)
	}
}

// ResumePreview attaches the preview consumer again.
func (m *Manager) ResumePreview() {
	if p := m.current(); p != nil {
		p.source.AddConsumer(p.consumer)
	}
}

// StartRecording launches the recorder writing to path.
func (m *Manager) StartRecording(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.active
	if p == nil {
		return ErrNotPreviewing
	}
	if p.recorder != nil {
		select {
		case <-p.recorder.Done():
		default:
			return services.Wrap(services.ErrValidation, "session", "start recording", "a recording is still running", nil)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "session", "start recording", "could not create the video directory", err)
	}
	rec, err := recording.Start(recording.Options{
		Logger:   p.logger,
		Launcher: m.launcher,
		Settings: p.settings,
		Source:   p.source,
		Client:   p.client,
		Classify: m.backend.ClassifyRecordError,
		Path:     path,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "session", "start recording", "could not launch the recorder", err)
	}
	p.recorder = rec
	return nil
}

func (m *Manager) PauseRecording() {
	if rec := m.recorder(); rec != nil {
		rec.Pause()
	}
}

func (m *Manager) ResumeRecording() {
	if rec := m.recorder(); rec != nil {
		rec.Resume()
	}
}

func (m *Manager) StopRecording() {
	if rec := m.recorder(); rec != nil {
		rec.Stop()
	}
}

// ShowSettingsDialog hands the current settings to the dialog, when one is
// wired.
func (m *Manager) ShowSettingsDialog() {
	var current settings.Capture
	if p := m.current(); p != nil {
		current = p.settings
	} else if stored, _, err := m.store.Load(); err == nil {
		current = stored
	}
	if m.dialog == nil {
		m.logger.Info("no settings dialog available", logging.String("settings_file", m.store.Path()))
		return
	}
	m.dialog.ShowSettings(current)
}

// TakePhoto returns the latest published preview frame.
func (m *Manager) TakePhoto() (preview.Frame, bool) {
	p := m.current()
	if p == nil {
		return preview.Frame{}, false
	}
	return p.sink.Snapshot()
}

// DeviceRemoved reports a hot-unplug of device. The active session treats
// it as a lost connection when it captures from that device.
func (m *Manager) DeviceRemoved(device string) {
	p := m.current()
	if p == nil || !sameDevice(p.settings.Device, device) {
		return
	}
	logging.WarnWithContext(p.logger, "capture device removed", "device_removed",
		logging.String(logging.FieldDevice, device),
		logging.String(logging.FieldImpact, "preview stops"),
	)
	p.client.DeviceConnectionLost()
}

func sameDevice(configured, removed string) bool {
	configured = strings.TrimSpace(configured)
	removed = strings.TrimSpace(removed)
	if configured == "" || removed == "" {
		return false
	}
	return configured == removed || filepath.Base(configured) == filepath.Base(removed)
}

// Status describes the active session.
type Status struct {
	Active        bool
	ID            string
	Device        string
	VideoSize     string
	PixelFormat   string
	Relay         bool
	Frames        uint64
	Recording     bool
	RecordingPath string
	Uptime        time.Duration
}

// Status reports the active session, if any.
func (m *Manager) Status() Status {
	p := m.current()
	if p == nil {
		return Status{}
	}
	st := Status{
		Active:      true,
		ID:          p.id,
		Device:      p.settings.Device,
		VideoSize:   p.settings.VideoSize(),
		PixelFormat: p.settings.PixelFormat,
		Relay:       p.relay != nil,
		Frames:      p.sink.Frames(),
		Uptime:      time.Since(p.started),
	}
	if rec := m.recorder(); rec != nil {
		select {
		case <-rec.Done():
		default:
			st.Recording = true
			st.RecordingPath = rec.Path()
		}
	}
	return st
}

// Shutdown stops the active session and waits for every process it started
// to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.StopPreviewing()
	m.mu.Lock()
	stopped := m.stopped
	m.stopped = nil
	m.mu.Unlock()

	for _, p := range stopped {
		for _, done := range p.waits() {
			select {
			case <-done:
			case <-ctx.Done():
				return fmt.Errorf("session %s shutdown: %w", p.id, ctx.Err())
			}
		}
	}
	return nil
}

func errSessionRunning() error {
	return services.Wrap(services.ErrValidation, "session", "start preview", "a preview session is already running", nil)
}

func (m *Manager) current() *pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) recorder() *recording.Recorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	return m.active.recorder
}
