package controller_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"capdeck/internal/controller"
	"capdeck/internal/facade"
	"capdeck/internal/logging"
	"capdeck/internal/messages"
	"capdeck/internal/preview"
)

type fakeMedia struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	recErr   error
	noPhoto  bool
}

func (m *fakeMedia) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *fakeMedia) take() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := m.calls
	m.calls = nil
	return calls
}

func (m *fakeMedia) StartPreviewing(context.Context, facade.Client, preview.Surface) error {
	m.record("startPreviewing")
	return m.startErr
}
func (m *fakeMedia) StopPreviewing() { m.record("stopPreviewing") }
func (m *fakeMedia) PausePreview()   { m.record("pausePreview") }
func (m *fakeMedia) ResumePreview()  { m.record("resumePreview") }
func (m *fakeMedia) StartRecording(string) error {
	m.record("startRecording")
	return m.recErr
}
func (m *fakeMedia) PauseRecording()     { m.record("pauseRecording") }
func (m *fakeMedia) ResumeRecording()    { m.record("resumeRecording") }
func (m *fakeMedia) StopRecording()      { m.record("stopRecording") }
func (m *fakeMedia) ShowSettingsDialog() { m.record("showSettingsDialog") }
func (m *fakeMedia) TakePhoto() (preview.Frame, bool) {
	m.record("takePhoto")
	if m.noPhoto {
		return preview.Frame{}, false
	}
	return preview.Frame{Width: 1, Height: 1, Pix: []byte{1, 2, 3, 0}}, true
}

type fakePrefs struct {
	enabled bool
	saves   []bool
	err     error
}

func (p *fakePrefs) Enabled() bool { return p.enabled }
func (p *fakePrefs) SetEnabled(v bool) error {
	p.saves = append(p.saves, v)
	if p.err != nil {
		return p.err
	}
	p.enabled = v
	return nil
}

type fakeCourier struct {
	mu      sync.Mutex
	notices []messages.Key
}

func (c *fakeCourier) Show(_ messages.Severity, key messages.Key, _ ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, key)
}

func (c *fakeCourier) take() []messages.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.notices
	c.notices = nil
	return n
}

type fakeSelection struct {
	has     bool
	pathErr error
	videos  []string
	photos  int
}

func (s *fakeSelection) HasSelection() bool { return s.has }
func (s *fakeSelection) SuggestVideoPath() (string, error) {
	if s.pathErr != nil {
		return "", s.pathErr
	}
	return "/videos/targets/7/video/20260101-120000.mp4", nil
}
func (s *fakeSelection) VideoAdded(path string)      { s.videos = append(s.videos, path) }
func (s *fakeSelection) PhotoCaptured(preview.Frame) { s.photos++ }

type harness struct {
	c         *controller.Controller
	media     *fakeMedia
	prefs     *fakePrefs
	courier   *fakeCourier
	selection *fakeSelection
	disabled  int
	phases    []controller.Phase
}

func newHarness() *harness {
	h := &harness{
		media:     &fakeMedia{},
		prefs:     &fakePrefs{},
		courier:   &fakeCourier{},
		selection: &fakeSelection{has: true},
	}
	h.c = controller.New(controller.Options{
		Logger:      logging.NewNop(),
		Media:       h.media,
		Preferences: h.prefs,
		Courier:     h.courier,
		Selection:   h.selection,
		OnDisabled:  func() { h.disabled++ },
	})
	h.c.OnPhaseChange(func(p controller.Phase) { h.phases = append(h.phases, p) })
	return h
}

// enter drives the controller into phase and clears recorded side effects.
func (h *harness) enter(t *testing.T, phase controller.Phase) {
	t.Helper()
	switch phase {
	case controller.Previewing:
		h.c.StartPreview()
	case controller.PausedPreviewing:
		h.c.StartPreview()
		h.c.PausePreview()
	case controller.Recording:
		h.c.StartPreview()
		h.c.StartOrStopRecording()
	case controller.PausedRecording:
		h.c.StartPreview()
		h.c.StartOrStopRecording()
		h.c.PauseOrResumeRecording()
	}
	if got := h.c.Phase(); got != phase {
		t.Fatalf("setup reached %v want %v", got, phase)
	}
	h.media.take()
	h.courier.take()
	h.prefs.saves = nil
	h.phases = nil
}

type row struct {
	phase      controller.Phase
	req        controller.Request
	wantPhase  controller.Phase
	wantCalls  []string
	wantNotice []messages.Key
	wantResult bool
	wantSaves  []bool
}

func req(kind controller.RequestKind) controller.Request { return controller.Request{Kind: kind} }

func enable(v bool) controller.Request {
	return controller.Request{Kind: controller.SetEnabled, Enabled: v}
}

var failureEvents = []controller.RequestKind{
	controller.DeviceConnectionLost,
	controller.DeviceNotFound,
	controller.PreviewingException,
}

var failureNotice = map[controller.RequestKind]messages.Key{
	controller.DeviceConnectionLost: messages.DeviceConnectionLost,
	controller.DeviceNotFound:       messages.DeviceNotFound,
	controller.PreviewingException:  messages.InternalError,
}

var recordingEvents = []controller.RequestKind{
	controller.OutOfDiskSpace,
	controller.LostFileAccess,
	controller.RecordingException,
	controller.RecordingFinished,
}

func idleRows() []row {
	p := controller.Idle
	rows := []row{
		{p, enable(true), controller.Previewing, []string{"startPreviewing"}, nil, true, []bool{true}},
		{p, enable(false), p, nil, nil, true, nil},
		{p, req(controller.StartPreview), controller.Previewing, []string{"startPreviewing"}, nil, true, nil},
		{p, req(controller.ShowSettings), p, []string{"showSettingsDialog"}, nil, true, nil},
		{p, req(controller.Dispose), p, nil, nil, true, nil},
		{p, req(controller.StartOrStopRecording), p, nil, nil, true, nil},
		{p, req(controller.PauseOrResumeRecording), p, nil, nil, true, nil},
		{p, req(controller.PausePreview), p, nil, nil, true, nil},
		{p, req(controller.ResumePreview), p, nil, nil, true, nil},
		{p, req(controller.TakePhoto), p, nil, []messages.Key{messages.PhotoWhenIdle}, true, nil},
	}
	for _, ev := range append(slices.Clone(failureEvents), recordingEvents...) {
		rows = append(rows, row{p, req(ev), p, nil, nil, true, nil})
	}
	return rows
}

func previewRows(p controller.Phase) []row {
	paused := p == controller.PausedPreviewing
	rows := []row{
		{p, enable(true), p, nil, nil, true, nil},
		{p, enable(false), controller.Idle, []string{"stopPreviewing"}, nil, true, []bool{false}},
		{p, req(controller.Dispose), controller.Idle, []string{"stopPreviewing"}, nil, true, nil},
		{p, req(controller.StartOrStopRecording), controller.Recording, []string{"startRecording"}, nil, true, nil},
		{p, req(controller.PauseOrResumeRecording), p, nil, nil, true, nil},
		{p, req(controller.TakePhoto), p, []string{"takePhoto"}, nil, true, nil},
	}
	if paused {
		rows = append(rows,
			row{p, req(controller.StartPreview), controller.Previewing, []string{"resumePreview"}, nil, true, nil},
			row{p, req(controller.ShowSettings), controller.Previewing, []string{"resumePreview", "showSettingsDialog"}, nil, true, nil},
			row{p, req(controller.PausePreview), p, nil, nil, true, nil},
			row{p, req(controller.ResumePreview), controller.Previewing, []string{"resumePreview"}, nil, true, nil},
		)
	} else {
		rows = append(rows,
			row{p, req(controller.StartPreview), p, nil, nil, true, nil},
			row{p, req(controller.ShowSettings), p, []string{"showSettingsDialog"}, nil, true, nil},
			row{p, req(controller.PausePreview), controller.PausedPreviewing, []string{"pausePreview"}, nil, true, nil},
			row{p, req(controller.ResumePreview), p, nil, nil, true, nil},
		)
	}
	for _, ev := range failureEvents {
		rows = append(rows, row{p, req(ev), controller.Idle, []string{"stopPreviewing"}, []messages.Key{failureNotice[ev]}, true, []bool{false}})
	}
	for _, ev := range recordingEvents {
		rows = append(rows, row{p, req(ev), p, nil, nil, true, nil})
	}
	return rows
}

func recordingRows(p controller.Phase) []row {
	rows := []row{
		{p, enable(true), p, nil, []messages.Key{messages.PreferencesLockedWhileRecording}, false, nil},
		{p, enable(false), p, nil, nil, true, nil},
		{p, req(controller.StartPreview), p, nil, nil, true, nil},
		{p, req(controller.ShowSettings), p, nil, []messages.Key{messages.PreferencesLockedWhileRecording}, true, nil},
		{p, req(controller.Dispose), controller.Idle, []string{"stopRecording", "stopPreviewing"}, nil, true, nil},
		{p, req(controller.StartOrStopRecording), p, []string{"stopRecording"}, nil, true, nil},
		{p, req(controller.PausePreview), p, []string{"pausePreview"}, nil, true, nil},
		{p, req(controller.ResumePreview), p, nil, nil, true, nil},
		{p, req(controller.TakePhoto), p, []string{"takePhoto"}, nil, true, nil},
		{p, req(controller.OutOfDiskSpace), p, nil, []messages.Key{messages.OutOfDiskSpace}, true, nil},
		{p, req(controller.LostFileAccess), p, nil, []messages.Key{messages.LostFileAccess}, true, nil},
		{p, req(controller.RecordingException), p, nil, []messages.Key{messages.InternalError}, true, nil},
		{p, req(controller.RecordingFinished), controller.Previewing, nil, nil, true, nil},
	}
	if p == controller.Recording {
		rows = append(rows, row{p, req(controller.PauseOrResumeRecording), controller.PausedRecording, []string{"pauseRecording"}, nil, true, nil})
	} else {
		rows = append(rows, row{p, req(controller.PauseOrResumeRecording), controller.Recording, []string{"resumeRecording"}, nil, true, nil})
	}
	for _, ev := range failureEvents {
		rows = append(rows, row{p, req(ev), p, []string{"stopRecording"}, []messages.Key{failureNotice[ev]}, true, nil})
	}
	return rows
}

func TestEveryPhaseRequestPair(t *testing.T) {
	var rows []row
	rows = append(rows, idleRows()...)
	rows = append(rows, previewRows(controller.Previewing)...)
	rows = append(rows, previewRows(controller.PausedPreviewing)...)
	rows = append(rows, recordingRows(controller.Recording)...)
	rows = append(rows, recordingRows(controller.PausedRecording)...)

	seen := map[string]bool{}
	for _, tc := range rows {
		name := fmt.Sprintf("%s/%s/%v", tc.phase, tc.req.Kind, tc.req.Enabled)
		seen[fmt.Sprintf("%s/%s", tc.phase, tc.req.Kind)] = true
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.enter(t, tc.phase)
			if tc.req.Kind == controller.DeviceNotFound {
				tc.req.Device = "/dev/video0"
			}

			got := h.c.Handle(tc.req)
			if got != tc.wantResult {
				t.Fatalf("result got %v want %v", got, tc.wantResult)
			}
			if phase := h.c.Phase(); phase != tc.wantPhase {
				t.Fatalf("phase got %v want %v", phase, tc.wantPhase)
			}
			if calls := h.media.take(); !slices.Equal(calls, tc.wantCalls) {
				t.Fatalf("media calls got %v want %v", calls, tc.wantCalls)
			}
			if notices := h.courier.take(); !slices.Equal(notices, tc.wantNotice) {
				t.Fatalf("notices got %v want %v", notices, tc.wantNotice)
			}
			if !slices.Equal(h.prefs.saves, tc.wantSaves) {
				t.Fatalf("preference saves got %v want %v", h.prefs.saves, tc.wantSaves)
			}
			if tc.wantPhase != tc.phase {
				if len(h.phases) == 0 || h.phases[len(h.phases)-1] != tc.wantPhase {
					t.Fatalf("listeners saw %v want final %v", h.phases, tc.wantPhase)
				}
			} else if len(h.phases) != 0 {
				t.Fatalf("listeners notified without a phase change: %v", h.phases)
			}
		})
	}

	for _, phase := range controller.Phases() {
		for kind := controller.SetEnabled; kind <= controller.PreviewingException; kind++ {
			if !seen[fmt.Sprintf("%s/%s", phase, kind)] {
				t.Errorf("no case for %s/%s", phase, kind)
			}
		}
	}
}

func TestPreviewFailureFiresDisabledHook(t *testing.T) {
	h := newHarness()
	h.prefs.enabled = true
	h.enter(t, controller.Previewing)
	h.c.DeviceNotFound("/dev/video0")
	if h.disabled != 1 {
		t.Fatalf("disabled hook ran %d times", h.disabled)
	}
	if h.prefs.enabled {
		t.Fatal("preference still enabled after preview failure")
	}
}

func TestIdleEnableFailureStaysIdle(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		notice messages.Key
	}{
		{"no device", fmt.Errorf("discover: %w", facade.ErrNoMediaDevice), messages.NoMediaDevice},
		{"io failure", errors.New("exec: ffmpeg: not found"), messages.InternalError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			h.media.startErr = tc.err
			if h.c.SetEnabled(true) {
				t.Fatal("enable reported success")
			}
			if h.c.Phase() != controller.Idle {
				t.Fatalf("phase got %v", h.c.Phase())
			}
			if h.prefs.enabled || len(h.prefs.saves) != 0 {
				t.Fatalf("preference touched: %v", h.prefs.saves)
			}
			if notices := h.courier.take(); !slices.Equal(notices, []messages.Key{tc.notice}) {
				t.Fatalf("notices got %v", notices)
			}
		})
	}
}

func TestIdleDisableWhenEnabledPersists(t *testing.T) {
	h := newHarness()
	h.prefs.enabled = true
	if !h.c.SetEnabled(false) {
		t.Fatal("disable failed")
	}
	if h.prefs.enabled || h.c.Phase() != controller.Idle {
		t.Fatalf("enabled %v phase %v", h.prefs.enabled, h.c.Phase())
	}
}

func TestRecordingWithoutSelectionScenario(t *testing.T) {
	h := newHarness()
	h.selection.has = false
	h.enter(t, controller.Previewing)

	h.c.StartOrStopRecording()
	h.c.StartOrStopRecording()

	want := []messages.Key{messages.RecordWithoutSelection, messages.RecordWithoutSelection}
	if got := h.courier.take(); !slices.Equal(got, want) {
		t.Fatalf("notices got %v want %v", got, want)
	}
	if h.c.Phase() != controller.Previewing {
		t.Fatalf("phase got %v", h.c.Phase())
	}
	if calls := h.media.take(); len(calls) != 0 {
		t.Fatalf("media called: %v", calls)
	}
}

func TestDeviceLostWhileRecordingScenario(t *testing.T) {
	h := newHarness()
	h.enter(t, controller.Recording)

	h.c.DeviceConnectionLost()
	if calls := h.media.take(); !slices.Equal(calls, []string{"stopRecording"}) {
		t.Fatalf("media calls got %v", calls)
	}
	if got := h.courier.take(); !slices.Equal(got, []messages.Key{messages.DeviceConnectionLost}) {
		t.Fatalf("notices got %v", got)
	}
	if h.c.Phase() != controller.Recording {
		t.Fatalf("phase got %v before recording finished", h.c.Phase())
	}

	h.c.StartOrStopRecording()
	if got := h.courier.take(); !slices.Equal(got, []messages.Key{messages.RecordingFinishing}) {
		t.Fatalf("stop after failure got %v", got)
	}

	h.c.RecordingFinished()
	if h.c.Phase() != controller.Previewing {
		t.Fatalf("phase got %v want previewing", h.c.Phase())
	}
}

func TestSecondStopShowsFinishing(t *testing.T) {
	h := newHarness()
	h.enter(t, controller.Recording)
	h.c.StartOrStopRecording()
	h.c.StartOrStopRecording()
	h.c.StartOrStopRecording()
	if calls := h.media.take(); !slices.Equal(calls, []string{"stopRecording"}) {
		t.Fatalf("media calls got %v", calls)
	}
	want := []messages.Key{messages.RecordingFinishing, messages.RecordingFinishing}
	if got := h.courier.take(); !slices.Equal(got, want) {
		t.Fatalf("notices got %v want %v", got, want)
	}
}

func TestRecordingRemembersPreviewPhase(t *testing.T) {
	h := newHarness()
	h.enter(t, controller.PausedPreviewing)
	h.c.StartOrStopRecording()
	if h.c.Phase() != controller.Recording {
		t.Fatalf("phase got %v", h.c.Phase())
	}
	h.c.StartOrStopRecording()
	h.c.RecordingFinished()
	if h.c.Phase() != controller.PausedPreviewing {
		t.Fatalf("phase got %v want paused_previewing", h.c.Phase())
	}

	h.c.ResumePreview()
	h.c.StartOrStopRecording()
	h.c.PausePreview()
	h.c.PauseOrResumeRecording()
	h.c.StartOrStopRecording()
	h.c.RecordingFinished()
	if h.c.Phase() != controller.PausedPreviewing {
		t.Fatalf("phase got %v want paused_previewing", h.c.Phase())
	}
}

func TestRecordingSetEnabledMatchingFlag(t *testing.T) {
	h := newHarness()
	h.prefs.enabled = true
	h.enter(t, controller.Recording)
	if !h.c.SetEnabled(true) {
		t.Fatal("matching value refused")
	}
	if h.c.SetEnabled(false) {
		t.Fatal("differing value accepted")
	}
	if h.c.Phase() != controller.Recording || !h.prefs.enabled {
		t.Fatalf("phase %v enabled %v", h.c.Phase(), h.prefs.enabled)
	}
}

func TestStartRecordingFailures(t *testing.T) {
	h := newHarness()
	h.enter(t, controller.Previewing)

	h.selection.pathErr = errors.New("no free name")
	h.c.StartOrStopRecording()
	h.selection.pathErr = nil
	h.media.recErr = errors.New("exec failed")
	h.c.StartOrStopRecording()

	if h.c.Phase() != controller.Previewing {
		t.Fatalf("phase got %v", h.c.Phase())
	}
	want := []messages.Key{messages.InternalError, messages.InternalError}
	if got := h.courier.take(); !slices.Equal(got, want) {
		t.Fatalf("notices got %v want %v", got, want)
	}
	if len(h.selection.videos) != 0 {
		t.Fatalf("failed recording registered %v", h.selection.videos)
	}
}

func TestTakePhoto(t *testing.T) {
	h := newHarness()
	h.enter(t, controller.Previewing)
	h.c.TakePhoto()
	if h.selection.photos != 1 {
		t.Fatalf("photos got %d", h.selection.photos)
	}

	h.media.noPhoto = true
	h.c.TakePhoto()
	h.selection.has = false
	h.c.TakePhoto()
	want := []messages.Key{messages.PhotoUnavailable, messages.PhotoWithoutSelection}
	if got := h.courier.take(); !slices.Equal(got, want) {
		t.Fatalf("notices got %v want %v", got, want)
	}
}

func TestListenersSeeEveryTransitionAndMayReenter(t *testing.T) {
	h := newHarness()
	var observed []controller.Phase
	h.c.OnPhaseChange(func(controller.Phase) { observed = append(observed, h.c.Phase()) })

	h.c.StartPreview()
	h.c.PausePreview()
	h.c.ResumePreview()
	h.c.Dispose()

	want := []controller.Phase{controller.Previewing, controller.PausedPreviewing, controller.Previewing, controller.Idle}
	if !slices.Equal(h.phases, want) {
		t.Fatalf("phases got %v want %v", h.phases, want)
	}
	if !slices.Equal(observed, want) {
		t.Fatalf("re-entrant reads got %v want %v", observed, want)
	}
}
