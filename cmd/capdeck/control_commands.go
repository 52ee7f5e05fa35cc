package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"capdeck/internal/ipc"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newEnableCommand(ctx, "enable", "Turn video on and start the preview", true),
		newEnableCommand(ctx, "disable", "Turn video off", false),
		newPreviewCommand(ctx),
		newRecordCommand(ctx),
		newPhotoCommand(ctx),
		newSettingsCommand(ctx),
		newSelectCommand(ctx),
		newDeselectCommand(ctx),
	}
}

func newEnableCommand(ctx *commandContext, use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetEnabled(enabled)
				if err != nil {
					return err
				}
				printAction(cmd.OutOrStdout(), resp)
				if !resp.Accepted {
					return fmt.Errorf("%s refused in phase %s", use, resp.Phase)
				}
				return nil
			})
		},
	}
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Control the live preview",
	}
	for _, action := range []struct{ name, short string }{
		{ipc.PreviewStart, "Start the preview"},
		{ipc.PreviewPause, "Pause the preview"},
		{ipc.PreviewResume, "Resume a paused preview"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.Preview(action.name)
					if err != nil {
						return err
					}
					printAction(cmd.OutOrStdout(), resp)
					return nil
				})
			},
		})
	}
	return cmd
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Control recording",
	}
	for _, action := range []struct{ name, short string }{
		{ipc.RecordToggle, "Start recording, or stop the running recording"},
		{ipc.RecordPause, "Pause or resume the running recording"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.Record(action.name)
					if err != nil {
						return err
					}
					printAction(cmd.OutOrStdout(), resp)
					return nil
				})
			},
		})
	}
	return cmd
}

func newPhotoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "photo",
		Short: "Save the current preview frame for the selected target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Photo()
				if err != nil {
					return err
				}
				printAction(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the capture settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Settings()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Shown {
					fmt.Fprintf(out, "No settings shown (phase %s)\n", resp.Phase)
					return nil
				}
				s := resp.Settings
				pairs := [][2]string{
					{"Device", s.Device},
					{"Video size", fmt.Sprintf("%dx%d", s.Width, s.Height)},
					{"Frame rate", s.FrameRate},
					{"Pixel format", s.PixelFormat},
					{"Preset", s.Preset},
					{"CRF", s.CRF},
					{"Pin", s.PinNumber},
					{"FFmpeg dir", s.ExecutableDir},
				}
				fmt.Fprintln(out, renderSettingsTable(pairs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Select the target that recordings and photos belong to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("target id is required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Select(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected target %s\n", resp.Selection)
				return nil
			})
		},
	}
}

func newDeselectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deselect",
		Short: "Clear the selected target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Select(""); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared")
				return nil
			})
		},
	}
}

func printAction(out io.Writer, resp *ipc.ActionResponse) {
	fmt.Fprintf(out, "Phase: %s\n", resp.Phase)
	for _, n := range resp.Notices {
		fmt.Fprintf(out, "%s: %s\n", n.Severity, n.Text)
	}
}
