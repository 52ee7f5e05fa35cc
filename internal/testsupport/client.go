package testsupport

import (
	"sync"
	"testing"
	"time"
)

// RecordingClient captures pipeline callbacks by name in arrival order.
type RecordingClient struct {
	mu     sync.Mutex
	calls  []string
	notify chan string
}

// NewRecordingClient returns an empty RecordingClient.
func NewRecordingClient() *RecordingClient {
	return &RecordingClient{notify: make(chan string, 64)}
}

func (c *RecordingClient) record(name string) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
	select {
	case c.notify <- name:
	default:
	}
}

func (c *RecordingClient) DeviceConnectionLost()        { c.record("deviceConnectionLost") }
func (c *RecordingClient) DeviceNotFound(device string) { c.record("deviceNotFound:" + device) }
func (c *RecordingClient) OutOfDiskSpaceWhileRecording() {
	c.record("outOfDiskSpaceWhileRecording")
}
func (c *RecordingClient) LostFileAccessWhileRecording() {
	c.record("lostFileAccessWhileRecording")
}
func (c *RecordingClient) RecordingException()  { c.record("recordingException") }
func (c *RecordingClient) RecordingFinished()   { c.record("recordingFinished") }
func (c *RecordingClient) PreviewingException() { c.record("previewingException") }

// Calls returns the callbacks seen so far.
func (c *RecordingClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// WaitFor blocks until the named callback arrives.
func (c *RecordingClient) WaitFor(t testing.TB, name string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		c.mu.Lock()
		for _, call := range c.calls {
			if call == name {
				c.mu.Unlock()
				return
			}
		}
		c.mu.Unlock()
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %s; saw %v", name, c.Calls())
		}
	}
}
