package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"capdeck/internal/backend"
	"capdeck/internal/ipc"
	"capdeck/internal/logging"
	"capdeck/internal/process"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Inspect recorded videos and saved photos",
	}

	var target string
	var prune bool
	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MediaList(ipc.MediaListRequest{Target: target, Prune: prune})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Pruned > 0 {
					fmt.Fprintf(out, "Pruned %d missing file(s)\n", resp.Pruned)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(out, "No media cataloged")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					path := item.Path
					if item.Alternative {
						path += " (alternative root)"
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Kind,
						item.Target,
						item.CreatedAt.Local().Format(time.DateTime),
						path,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "ID", align: text.AlignRight},
					{header: "Kind"},
					{header: "Target"},
					{header: "Created"},
					{header: "Path"},
				}, rows))
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&target, "target", "", "Only list media for this target")
	listCmd.Flags().BoolVar(&prune, "prune", false, "Drop entries whose files no longer exist")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	mediaCmd.AddCommand(listCmd)
	return mediaCmd
}

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				name    string
				devices []ipc.Device
			)
			if local {
				var err error
				name, devices, err = listDevicesLocally(cmd.Context(), ctx)
				if err != nil {
					return err
				}
			} else {
				err := ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.Devices()
					if err != nil {
						return err
					}
					name, devices = resp.Backend, resp.Devices
					return nil
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintf(out, "No %s video devices found\n", name)
				return nil
			}
			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				mark := ""
				if d.Default {
					mark = "*"
				}
				rows = append(rows, []string{mark, d.ID, d.Name})
			}
			fmt.Fprintln(out, renderTable([]column{
				{align: text.AlignCenter},
				{header: "Device"},
				{header: "Name", width: 48},
			}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Run the listing here instead of asking the daemon")
	return cmd
}

func listDevicesLocally(cmdCtx context.Context, ctx *commandContext) (string, []ipc.Device, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", nil, err
	}
	b, err := backend.ForName(cfg.Capture.Backend)
	if err != nil {
		return "", nil, err
	}
	listCtx, cancel := context.WithTimeout(cmdCtx, cfg.ListTimeout())
	defer cancel()
	supervisor := process.NewSupervisor(logging.NewNop())
	argv := append([]string{cfg.FFmpegBinary()}, b.ListDevicesArgs()...)
	listing, err := supervisor.Output(listCtx, argv)
	if err != nil {
		return b.Name(), nil, fmt.Errorf("list %s devices: %w", b.Name(), err)
	}
	var devices []ipc.Device
	for _, d := range b.ParseDevices(listing) {
		devices = append(devices, ipc.Device(d))
	}
	return b.Name(), devices, nil
}
