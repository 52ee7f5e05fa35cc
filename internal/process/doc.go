// Package process supervises the ffmpeg subprocesses behind a capture
// session.
//
// A Supervisor launches commands with raw OS pipes so the caller owns the
// stdout reader outright, drains stderr in the background, and reports the
// exit status through a callback once the process is gone. Terminate asks the
// process group to stop and escalates to a forced kill if the process is still
// alive after the grace period. Exits caused by a closed pipe, or by a
// termination the supervisor itself requested, count as clean.
package process
