package session

import (
	"sync/atomic"

	"capdeck/internal/facade"
)

// guardedClient forwards pipeline callbacks for one session. Preview
// failures can be reported by several sources at once (the capture process
// exit, the relay, the device monitor); only the first reaches the client,
// and none does once the session was stopped on purpose.
type guardedClient struct {
	next           facade.Client
	previewFailed  atomic.Bool
	previewStopped atomic.Bool
}

func newGuardedClient(next facade.Client) *guardedClient {
	return &guardedClient{next: next}
}

func (c *guardedClient) stop() { c.previewStopped.Store(true) }

func (c *guardedClient) claimPreviewFailure() bool {
	if c.next == nil || c.previewStopped.Load() {
		return false
	}
	return c.previewFailed.CompareAndSwap(false, true)
}

func (c *guardedClient) DeviceConnectionLost() {
	if c.claimPreviewFailure() {
		c.next.DeviceConnectionLost()
	}
}

func (c *guardedClient) DeviceNotFound(device string) {
	if c.claimPreviewFailure() {
		c.next.DeviceNotFound(device)
	}
}

func (c *guardedClient) PreviewingException() {
	if c.claimPreviewFailure() {
		c.next.PreviewingException()
	}
}

func (c *guardedClient) OutOfDiskSpaceWhileRecording() {
	if c.next != nil {
		c.next.OutOfDiskSpaceWhileRecording()
	}
}

func (c *guardedClient) LostFileAccessWhileRecording() {
	if c.next != nil {
		c.next.LostFileAccessWhileRecording()
	}
}

func (c *guardedClient) RecordingException() {
	if c.next != nil {
		c.next.RecordingException()
	}
}

func (c *guardedClient) RecordingFinished() {
	if c.next != nil {
		c.next.RecordingFinished()
	}
}
