package deps

import "strings"

// CheckFFmpeg reports the ffmpeg binary capture sessions will execute.
// binary is either a bare name resolved from PATH or a path below the
// configured ffmpeg directory.
func CheckFFmpeg(binary string) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	status := Status{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required for capture, preview and recording",
	}
	resolved, err := locate(binary)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}
