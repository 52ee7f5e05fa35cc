package controller

// Phase is the controller's operating mode.
type Phase int

const (
	Idle Phase = iota
	Previewing
	PausedPreviewing
	Recording
	PausedRecording
)

func (p Phase) String() string {
	switch p {
	case Previewing:
		return "previewing"
	case PausedPreviewing:
		return "paused_previewing"
	case Recording:
		return "recording"
	case PausedRecording:
		return "paused_recording"
	default:
		return "idle"
	}
}

// Phases lists every phase in declaration order.
func Phases() []Phase {
	return []Phase{Idle, Previewing, PausedPreviewing, Recording, PausedRecording}
}

// RequestKind enumerates everything the transition function handles: user
// requests and pipeline callbacks alike.
type RequestKind int

const (
	SetEnabled RequestKind = iota
	StartPreview
	ShowSettings
	Dispose
	StartOrStopRecording
	PauseOrResumeRecording
	PausePreview
	ResumePreview
	TakePhoto

	DeviceConnectionLost
	DeviceNotFound
	OutOfDiskSpace
	LostFileAccess
	RecordingException
	RecordingFinished
	PreviewingException
)

var requestNames = map[RequestKind]string{
	SetEnabled:             "set_enabled",
	StartPreview:           "start_preview",
	ShowSettings:           "show_settings",
	Dispose:                "dispose",
	StartOrStopRecording:   "start_or_stop_recording",
	PauseOrResumeRecording: "pause_or_resume_recording",
	PausePreview:           "pause_preview",
	ResumePreview:          "resume_preview",
	TakePhoto:              "take_photo",
	DeviceConnectionLost:   "device_connection_lost",
	DeviceNotFound:         "device_not_found",
	OutOfDiskSpace:         "out_of_disk_space",
	LostFileAccess:         "lost_file_access",
	RecordingException:     "recording_exception",
	RecordingFinished:      "recording_finished",
	PreviewingException:    "previewing_exception",
}

func (k RequestKind) String() string {
	if name, ok := requestNames[k]; ok {
		return name
	}
	return "unknown"
}

// Request is one input to the transition function.
type Request struct {
	Kind RequestKind
	// Enabled is the requested flag for SetEnabled.
	Enabled bool
	// Device names the missing device for DeviceNotFound.
	Device string
}

// state is the tagged phase value. previewPhase and stopRequested are only
// meaningful while recording.
type state struct {
	phase         Phase
	previewPhase  Phase
	stopRequested bool
}
