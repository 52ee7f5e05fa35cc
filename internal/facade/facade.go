// Package facade declares the contracts between the media controller and the
// capture pipeline: the operations the controller invokes and the failure
// callbacks the pipeline reports back.
package facade

import (
	"context"
	"errors"

	"capdeck/internal/preview"
)

// ErrNoMediaDevice reports that device discovery found nothing to capture from.
var ErrNoMediaDevice = errors.New("no media device found")

// Media is the pipeline surface the controller drives. Every method except
// StartPreviewing and StartRecording returns without waiting for the pipeline
// to settle; outcomes arrive through Client.
type Media interface {
	// StartPreviewing resolves the device if needed, launches capture, and
	// starts delivering frames to surface. Failures arrive later through client.
	StartPreviewing(ctx context.Context, client Client, surface preview.Surface) error
	StopPreviewing()
	PausePreview()
	ResumePreview()
	// StartRecording launches the record process writing to path.
	StartRecording(path string) error
	PauseRecording()
	ResumeRecording()
	StopRecording()
	ShowSettingsDialog()
	// TakePhoto returns the latest preview frame, if one was published.
	TakePhoto() (preview.Frame, bool)
}

// Client receives pipeline failures and lifecycle events. Calls arrive on
// pipeline goroutines.
type Client interface {
	DeviceConnectionLost()
	DeviceNotFound(device string)
	OutOfDiskSpaceWhileRecording()
	LostFileAccessWhileRecording()
	RecordingException()
	RecordingFinished()
	PreviewingException()
}

// Failure enumerates classified pipeline failures.
type Failure int

const (
	FailurePreviewing Failure = iota
	FailureDeviceNotFound
	FailureDeviceConnectionLost
	FailureRecording
	FailureOutOfDiskSpace
	FailureLostFileAccess
)

func (f Failure) String() string {
	switch f {
	case FailureDeviceNotFound:
		return "device_not_found"
	case FailureDeviceConnectionLost:
		return "device_connection_lost"
	case FailureRecording:
		return "recording_exception"
	case FailureOutOfDiskSpace:
		return "out_of_disk_space"
	case FailureLostFileAccess:
		return "lost_file_access"
	default:
		return "previewing_exception"
	}
}

// Classification is the outcome of inspecting a failed process's stderr.
type Classification struct {
	Kind   Failure
	Device string
}

// Deliver invokes the client callback matching the classification.
func (c Classification) Deliver(client Client) {
	if client == nil {
		return
	}
	switch c.Kind {
	case FailureDeviceNotFound:
		client.DeviceNotFound(c.Device)
	case FailureDeviceConnectionLost:
		client.DeviceConnectionLost()
	case FailureRecording:
		client.RecordingException()
	case FailureOutOfDiskSpace:
		client.OutOfDiskSpaceWhileRecording()
	case FailureLostFileAccess:
		client.LostFileAccessWhileRecording()
	default:
		client.PreviewingException()
	}
}

// Classifier maps a failed process's stderr to a Classification.
type Classifier func(stderr string) Classification
