package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"capdeck/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, preview and recording status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				renderStatus(out, status, shouldColorize(out))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func renderStatus(out io.Writer, st *ipc.StatusResponse, colorize bool) {
	report := newStatusReport(colorize)

	daemon := report.section("Daemon")
	runKind := statusOK
	if !st.Running {
		runKind = statusError
	}
	daemon.add("Running", runKind, fmt.Sprintf("pid %d, up %s", st.PID, formatSeconds(st.UptimeSeconds)))
	daemon.add("Backend", statusInfo, st.Backend)
	daemon.add("Video enabled", enabledKind(st.Enabled), yesNo(st.Enabled))
	daemon.add("Phase", statusInfo, st.Phase)
	daemon.add("Selection", selectionKind(st.Selection), orNone(st.Selection))

	session := report.section("Session")
	if s := st.Session; !s.Active {
		session.add("Capture", statusInfo, "no active session")
	} else {
		session.add("Session", statusInfo, s.ID)
		session.add("Device", statusOK, s.Device)
		session.add("Format", statusInfo, fmt.Sprintf("%s %s (relay %s)", s.VideoSize, s.PixelFormat, yesNo(s.Relay)))
		session.add("Frames", statusInfo, fmt.Sprintf("%d shown, %d captured", st.FramesShown, s.Frames))
		if s.Recording {
			session.add("Recording", statusWarn, s.RecordingPath)
		}
	}

	if len(st.Notices) > 0 {
		notices := report.section("Messages")
		for _, n := range st.Notices {
			notices.add(n.Time.Local().Format(time.TimeOnly), noticeKind(n.Severity.String()), n.Text)
		}
	}
	if len(st.Problems) > 0 {
		problems := report.section("Recent problems")
		for _, p := range st.Problems {
			msg := p.Message
			if p.Error != "" {
				msg += ": " + p.Error
			}
			problems.add(p.Time.Local().Format(time.TimeOnly), noticeKind(p.Level), msg)
		}
	}
	fmt.Fprintln(out, report.String())
}

func enabledKind(enabled bool) statusKind {
	if enabled {
		return statusOK
	}
	return statusInfo
}

func selectionKind(selection string) statusKind {
	if selection == "" {
		return statusWarn
	}
	return statusOK
}

func noticeKind(level string) statusKind {
	switch strings.ToLower(level) {
	case "error":
		return statusError
	case "warning", "warn":
		return statusWarn
	default:
		return statusInfo
	}
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

func formatSeconds(seconds float64) string {
	return (time.Duration(seconds) * time.Second).Round(time.Second).String()
}
