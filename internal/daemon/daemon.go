package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"capdeck/internal/backend"
	"capdeck/internal/catalog"
	"capdeck/internal/config"
	"capdeck/internal/controller"
	"capdeck/internal/devicewatch"
	"capdeck/internal/library"
	"capdeck/internal/logging"
	"capdeck/internal/messages"
	"capdeck/internal/preflight"
	"capdeck/internal/process"
	"capdeck/internal/services"
	"capdeck/internal/session"
	"capdeck/internal/settings"
)

// Options overrides collaborators for tests. Zero values select the
// production implementations.
type Options struct {
	Launcher process.Launcher
	Runner   backend.Runner
	History  *logging.History
}

// Daemon owns the controller and everything it drives.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	history *logging.History

	lockPath string
	lock     *flock.Flock

	backend    backend.Backend
	runner     backend.Runner
	settings   *settings.Store
	catalog    *catalog.Store
	media      *session.Manager
	courier    *messages.LogCourier
	library    *library.Manager
	controller *controller.Controller
	watch      *devicewatch.Monitor
	meter      *frameMeter
	view       *settingsView

	running atomic.Bool
	started time.Time
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. The catalog is
// opened here; Close releases it.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	b, err := backend.ForName(cfg.Capture.Backend)
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "open catalog", "media catalog unavailable", err)
	}

	launcher, runner := opts.Launcher, opts.Runner
	if launcher == nil || runner == nil {
		supervisor := process.NewSupervisor(logger, process.WithGracePeriod(cfg.GracePeriod()))
		if launcher == nil {
			launcher = supervisor
		}
		if runner == nil {
			runner = supervisor
		}
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		history:  opts.History,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		backend:  b,
		runner:   runner,
		settings: settings.NewStore(cfg.SettingsPath()),
		catalog:  store,
		meter:    &frameMeter{},
		view:     &settingsView{},
	}
	d.courier = messages.NewLogCourier(logger, cfg.Capture.Language)
	d.media = session.New(session.Options{
		Logger:        logger,
		Launcher:      launcher,
		Runner:        runner,
		Backend:       b,
		Store:         d.settings,
		ExecutableDir: cfg.Capture.FFmpegDir,
		Dialog:        d.view,
		StopTimeout:   cfg.GracePeriod(),
	})
	d.library = library.New(library.Options{
		Logger:  logger,
		Paths:   cfg.Paths,
		Layout:  cfg.Library,
		Catalog: store,
		Courier: d.courier,
	})
	d.controller = controller.New(controller.Options{
		Logger:       logger,
		Media:        d.media,
		Preferences:  d.settings,
		Courier:      d.courier,
		Selection:    d.library,
		Surface:      d.meter,
		OnDisabled:   d.videoDisabled,
		StartTimeout: cfg.ListTimeout(),
	})
	d.controller.OnPhaseChange(func(phase controller.Phase) {
		d.logger.Info("phase changed",
			logging.String(logging.FieldEventType, "phase_changed"),
			logging.String(logging.FieldPhase, phase.String()),
		)
	})
	if cfg.Devices.WatchHotplug {
		d.watch = devicewatch.New(logger, d.media.DeviceRemoved)
	}
	return d, nil
}

// Start acquires the instance lock, starts device monitoring and resumes
// the preview when video was left enabled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another capdeck daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.started = time.Now()
	d.running.Store(true)

	d.logPreflight(runCtx)
	if err := d.watch.Start(runCtx); err != nil {
		d.logger.Warn("device monitor unavailable", logging.Error(err))
	}

	d.logger.Info("capdeck daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("backend", d.backend.Name()),
	)

	if d.settings.Enabled() {
		d.controller.StartPreview()
	}
	return nil
}

// Stop disposes the controller, waits for capture processes and releases
// the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.watch.Stop()
	d.controller.Dispose()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.GracePeriod()+5*time.Second)
	defer cancel()
	if err := d.media.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "capture processes still running at shutdown", "daemon_shutdown_incomplete",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check for orphaned ffmpeg processes"),
			logging.String(logging.FieldImpact, "a recording may be unfinalized"),
		)
	}
	d.library.Flush()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
			logging.String(logging.FieldImpact, "a stale lock may block restarts"),
		)
	}
	d.running.Store(false)
	d.logger.Info("capdeck daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and releases the catalog.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// Controller exposes the controller for request dispatch.
func (d *Daemon) Controller() *controller.Controller { return d.controller }

// Library exposes the selection manager.
func (d *Daemon) Library() *library.Manager { return d.library }

// Courier exposes the user message courier.
func (d *Daemon) Courier() *messages.LogCourier { return d.courier }

// Catalog exposes the media catalog.
func (d *Daemon) Catalog() *catalog.Store { return d.catalog }

// ShowSettings asks the controller to present the capture settings and
// returns what was shown. ok is false when the controller showed nothing.
func (d *Daemon) ShowSettings() (settings.Capture, bool) {
	before := d.view.count()
	d.controller.ShowSettings()
	current, shows := d.view.last()
	if shows == before {
		return settings.Capture{}, false
	}
	return current, true
}

// Devices lists the capture devices the backend can see.
func (d *Daemon) Devices(ctx context.Context) ([]backend.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ListTimeout())
	defer cancel()
	argv := append([]string{d.cfg.FFmpegBinary()}, d.backend.ListDevicesArgs()...)
	listing, err := d.runner.Output(ctx, argv)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "daemon", "list devices", "device listing failed", err)
	}
	return d.backend.ParseDevices(listing), nil
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Phase          controller.Phase
	Enabled        bool
	Selection      string
	Session        session.Status
	FramesShown    uint64
	LastFrame      time.Time
	Uptime         time.Duration
	Backend        string
	LockPath       string
	CatalogPath    string
	Notices        []messages.Notice
	RecentProblems []logging.Entry
}

// Status returns a snapshot of the daemon.
func (d *Daemon) Status() Status {
	shown, last := d.meter.snapshot()
	selection, _ := d.library.Selected()
	st := Status{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		Phase:       d.controller.Phase(),
		Enabled:     d.controller.Enabled(),
		Selection:   selection,
		Session:     d.media.Status(),
		FramesShown: shown,
		LastFrame:   last,
		Backend:     d.backend.Name(),
		LockPath:    d.lockPath,
		CatalogPath: d.catalog.Path(),
		Notices:     d.courier.Recent(),
	}
	if st.Running {
		st.Uptime = time.Since(d.started)
	}
	if d.history != nil {
		st.RecentProblems = d.history.Entries()
	}
	return st
}

func (d *Daemon) videoDisabled() {
	d.logger.Info("video disabled after preview failure",
		logging.String(logging.FieldEventType, "video_disabled"),
	)
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run capdeck doctor for details"),
			logging.String(logging.FieldImpact, "capture or saving media may fail"),
		)
	}
}
