// Package devicewatch reports capture devices disappearing from the system.
//
// On Linux it listens on the udev netlink socket for video4linux remove
// events. Other platforms get a monitor that never fires; device loss there
// surfaces through the capture process exiting.
package devicewatch

// Handler receives the device node of a removed capture device, for example
// /dev/video0.
type Handler func(device string)
