// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Every
// control method funnels into the daemon's controller, so the CLI can never
// bypass the phase table; responses carry the phase reached and any user
// notices produced while handling the call.
package ipc
