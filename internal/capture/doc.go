// Package capture runs the frame loop: it reads raw frames from the capture
// process and fans the bytes out to registered consumers.
//
// One goroutine owns the consumer set. AddConsumer, RemoveConsumer and Stop
// only publish requests through an atomically swapped chain; the loop applies
// them in arrival order at frame boundaries, so a consumer always sees whole
// frames. When the loop ends, every registered consumer is told once that
// capture stopped.
package capture
