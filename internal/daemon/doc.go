// Package daemon hosts the media controller in a long-running process.
//
// It wires configuration, the settings store, the process supervisor, the
// capture session manager, the media catalog and the device monitor into one
// lifecycle, with a flock-based lock preventing a second instance. Commands
// arriving over the control socket are translated into controller requests
// here; the controller owns every phase decision.
package daemon
