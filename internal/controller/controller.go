// Package controller validates every request against the current phase and
// drives the capture pipeline accordingly. It is also the pipeline's
// failure-callback target: failures are mapped to recovery transitions and
// user notices.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"capdeck/internal/facade"
	"capdeck/internal/logging"
	"capdeck/internal/messages"
	"capdeck/internal/preview"
)

const defaultStartTimeout = 30 * time.Second

// Preferences persists the enabled flag.
type Preferences interface {
	Enabled() bool
	SetEnabled(enabled bool) error
}

// Selection is the active target that recordings and photos belong to.
type Selection interface {
	HasSelection() bool
	SuggestVideoPath() (string, error)
	VideoAdded(path string)
	PhotoCaptured(frame preview.Frame)
}

// Options wires a Controller.
type Options struct {
	Logger      *slog.Logger
	Media       facade.Media
	Preferences Preferences
	Courier     messages.Courier
	Selection   Selection
	Surface     preview.Surface
	// OnDisabled runs after a preview failure disabled video.
	OnDisabled func()
	// Context bounds preview starts. Defaults to context.Background.
	Context context.Context
	// StartTimeout bounds device resolution when starting a preview.
	StartTimeout time.Duration
}

// Controller is the request gateway in front of facade.Media.
type Controller struct {
	logger       *slog.Logger
	media        facade.Media
	prefs        Preferences
	courier      messages.Courier
	selection    Selection
	surface      preview.Surface
	onDisabled   func()
	ctx          context.Context
	startTimeout time.Duration

	mu        sync.Mutex
	st        state
	listeners []func(Phase)
	// effects run in order after mu is released.
	effects []func()
}

var _ facade.Client = (*Controller)(nil)

// New returns an idle Controller.
func New(opts Options) *Controller {
	c := &Controller{
		logger:       logging.NewComponentLogger(opts.Logger, "media-controller"),
		media:        opts.Media,
		prefs:        opts.Preferences,
		courier:      opts.Courier,
		selection:    opts.Selection,
		surface:      opts.Surface,
		onDisabled:   opts.OnDisabled,
		ctx:          opts.Context,
		startTimeout: opts.StartTimeout,
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	if c.startTimeout <= 0 {
		c.startTimeout = defaultStartTimeout
	}
	return c
}

// OnPhaseChange registers fn to receive every new phase. Calls happen after
// the controller released its lock, in transition order.
func (c *Controller) OnPhaseChange(fn func(Phase)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.phase
}

// Enabled reports the persisted enabled flag.
func (c *Controller) Enabled() bool {
	return c.prefs.Enabled()
}

// Handle runs one request through the transition function and reports its
// result. Only SetEnabled produces a meaningful result; other requests
// return true.
func (c *Controller) Handle(req Request) bool {
	c.mu.Lock()
	ok := c.transition(req)
	effects := c.effects
	c.effects = nil
	c.mu.Unlock()

	for _, fn := range effects {
		fn()
	}
	return ok
}

func (c *Controller) SetEnabled(enabled bool) bool {
	return c.Handle(Request{Kind: SetEnabled, Enabled: enabled})
}

func (c *Controller) StartPreview()           { c.Handle(Request{Kind: StartPreview}) }
func (c *Controller) ShowSettings()           { c.Handle(Request{Kind: ShowSettings}) }
func (c *Controller) Dispose()                { c.Handle(Request{Kind: Dispose}) }
func (c *Controller) StartOrStopRecording()   { c.Handle(Request{Kind: StartOrStopRecording}) }
func (c *Controller) PauseOrResumeRecording() { c.Handle(Request{Kind: PauseOrResumeRecording}) }
func (c *Controller) PausePreview()           { c.Handle(Request{Kind: PausePreview}) }
func (c *Controller) ResumePreview()          { c.Handle(Request{Kind: ResumePreview}) }
func (c *Controller) TakePhoto()              { c.Handle(Request{Kind: TakePhoto}) }

func (c *Controller) DeviceConnectionLost() { c.Handle(Request{Kind: DeviceConnectionLost}) }
func (c *Controller) DeviceNotFound(device string) {
	c.Handle(Request{Kind: DeviceNotFound, Device: device})
}
func (c *Controller) OutOfDiskSpaceWhileRecording() { c.Handle(Request{Kind: OutOfDiskSpace}) }
func (c *Controller) LostFileAccessWhileRecording() { c.Handle(Request{Kind: LostFileAccess}) }
func (c *Controller) RecordingException()           { c.Handle(Request{Kind: RecordingException}) }
func (c *Controller) RecordingFinished()            { c.Handle(Request{Kind: RecordingFinished}) }
func (c *Controller) PreviewingException()          { c.Handle(Request{Kind: PreviewingException}) }

// setPhase moves to phase and queues listener notifications.
func (c *Controller) setPhase(phase Phase) {
	if c.st.phase == phase {
		return
	}
	from := c.st.phase
	c.st.phase = phase
	if phase != Recording && phase != PausedRecording {
		c.st.previewPhase = Idle
		c.st.stopRequested = false
	}
	c.logger.Info("phase changed",
		logging.String("from", from.String()),
		logging.String(logging.FieldPhase, phase.String()),
	)
	listeners := slices.Clone(c.listeners)
	c.effects = append(c.effects, func() {
		for _, fn := range listeners {
			fn(phase)
		}
	})
}

func (c *Controller) show(severity messages.Severity, key messages.Key, args ...any) {
	if c.courier == nil {
		return
	}
	c.effects = append(c.effects, func() { c.courier.Show(severity, key, args...) })
}

func (c *Controller) unexpected(req Request) {
	c.logger.Warn("request not valid in current phase; ignored",
		logging.String("request", req.Kind.String()),
		logging.String(logging.FieldPhase, c.st.phase.String()),
		logging.String(logging.FieldEventType, "unexpected_request"),
		logging.String(logging.FieldErrorHint, "the caller should respect the published phase"),
	)
}

func (c *Controller) persistEnabled(enabled bool) {
	if err := c.prefs.SetEnabled(enabled); err != nil {
		logging.ErrorWithContext(c.logger, "could not persist video preference", "preference_save_failed",
			logging.Bool("enabled", enabled),
			logging.Error(err),
		)
	}
}

// startPreviewing asks the pipeline to start and reports failures to the
// user.
func (c *Controller) startPreviewing() bool {
	c.logger.Info("starting preview")
	ctx, cancel := context.WithTimeout(c.ctx, c.startTimeout)
	defer cancel()
	err := c.media.StartPreviewing(ctx, c, c.surface)
	if err == nil {
		return true
	}
	if errors.Is(err, facade.ErrNoMediaDevice) {
		logging.WarnWithContext(c.logger, "no capture device detected", "no_media_device",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "connect a capture device and run capdeck devices"),
			logging.String(logging.FieldImpact, "preview not started"),
		)
		c.show(messages.Error, messages.NoMediaDevice)
		return false
	}
	logging.ErrorWithContext(c.logger, "preview start failed", "preview_start_failed", logging.Error(err))
	c.show(messages.Error, messages.InternalError)
	return false
}
