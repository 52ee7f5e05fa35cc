package ipc

import (
	"time"

	"capdeck/internal/logging"
	"capdeck/internal/messages"
)

// Notice is a user message produced by the daemon.
type Notice = messages.Notice

// LogEntry is a retained warning or error from the daemon log.
type LogEntry = logging.Entry

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// SessionStatus describes the active capture session.
type SessionStatus struct {
	Active        bool    `json:"active"`
	ID            string  `json:"id"`
	Device        string  `json:"device"`
	VideoSize     string  `json:"video_size"`
	PixelFormat   string  `json:"pixel_format"`
	Relay         bool    `json:"relay"`
	Frames        uint64  `json:"frames"`
	Recording     bool    `json:"recording"`
	RecordingPath string  `json:"recording_path"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// StatusResponse represents daemon, controller and session state.
type StatusResponse struct {
	Running       bool          `json:"running"`
	PID           int           `json:"pid"`
	Phase         string        `json:"phase"`
	Enabled       bool          `json:"enabled"`
	Selection     string        `json:"selection"`
	Session       SessionStatus `json:"session"`
	FramesShown   uint64        `json:"frames_shown"`
	LastFrame     time.Time     `json:"last_frame"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Backend       string        `json:"backend"`
	LockPath      string        `json:"lock_path"`
	CatalogPath   string        `json:"catalog_path"`
	Notices       []Notice      `json:"notices"`
	Problems      []LogEntry    `json:"problems"`
}

// ActionResponse reports the outcome of a controller request.
type ActionResponse struct {
	Accepted bool     `json:"accepted"`
	Phase    string   `json:"phase"`
	Notices  []Notice `json:"notices"`
}

// SetEnabledRequest turns video on or off.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// Preview actions.
const (
	PreviewStart  = "start"
	PreviewPause  = "pause"
	PreviewResume = "resume"
)

// PreviewRequest starts, pauses or resumes the preview.
type PreviewRequest struct {
	Action string `json:"action"`
}

// Record actions.
const (
	RecordToggle = "toggle"
	RecordPause  = "pause"
)

// RecordRequest starts/stops or pauses/resumes recording.
type RecordRequest struct {
	Action string `json:"action"`
}

// PhotoRequest takes a snapshot of the preview.
type PhotoRequest struct{}

// SettingsRequest asks the daemon to present the capture settings.
type SettingsRequest struct{}

// CaptureSettings mirrors the resolved capture settings.
type CaptureSettings struct {
	Device        string `json:"device"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	FrameRate     string `json:"frame_rate"`
	PixelFormat   string `json:"pixel_format"`
	Preset        string `json:"preset"`
	CRF           string `json:"crf"`
	PinNumber     string `json:"pin_number"`
	ExecutableDir string `json:"executable_dir"`
}

// SettingsResponse carries the settings shown, if any.
type SettingsResponse struct {
	Shown    bool            `json:"shown"`
	Settings CaptureSettings `json:"settings"`
	Phase    string          `json:"phase"`
}

// SelectRequest makes ID the active target. An empty ID deselects.
type SelectRequest struct {
	ID string `json:"id"`
}

// SelectResponse echoes the active target.
type SelectResponse struct {
	Selection string `json:"selection"`
}

// MediaListRequest lists cataloged media, optionally for one target.
type MediaListRequest struct {
	Target string `json:"target"`
	// Prune drops entries whose files are gone before listing.
	Prune bool `json:"prune"`
}

// MediaItem is one cataloged file.
type MediaItem struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Target      string    `json:"target"`
	Path        string    `json:"path"`
	Alternative bool      `json:"alternative"`
	CreatedAt   time.Time `json:"created_at"`
}

// TargetSummary counts media per target.
type TargetSummary struct {
	Target    string    `json:"target"`
	Videos    int       `json:"videos"`
	Photos    int       `json:"photos"`
	LastAdded time.Time `json:"last_added"`
}

// MediaListResponse contains catalog entries.
type MediaListResponse struct {
	Items   []MediaItem     `json:"items"`
	Targets []TargetSummary `json:"targets"`
	Pruned  int             `json:"pruned"`
}

// DevicesRequest lists capture devices.
type DevicesRequest struct{}

// Device is one listed capture device.
type Device struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// DevicesResponse contains the device listing.
type DevicesResponse struct {
	Backend string   `json:"backend"`
	Devices []Device `json:"devices"`
}
