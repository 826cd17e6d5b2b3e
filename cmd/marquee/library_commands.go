package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"marquee/internal/ipc"
)

func newAnimationsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "animations",
		Short: "List animations available to the sign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Animations()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Animations)
				}
				if len(resp.Animations) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No animations found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Animations))
				for _, entry := range resp.Animations {
					rows = append(rows, []string{
						entry.Name,
						entry.Title,
						formatSize(entry.Size),
						entry.Modified.Local().Format("2006-01-02 15:04"),
					})
				}
				table := renderTable([]string{"Name", "Title", "Size", "Modified"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List configured message presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Presets()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Presets)
				}
				if len(resp.Presets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No presets configured")
					return nil
				}
				rows := make([][]string, 0, len(resp.Presets))
				for _, preset := range resp.Presets {
					rows = append(rows, []string{preset.Name, preset.Text, presetStyle(preset)})
				}
				table := renderTable([]string{"Name", "Text", "Style"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func presetStyle(preset ipc.PresetEntry) string {
	parts := make([]string, 0, 4)
	if preset.Color != "" {
		parts = append(parts, "color="+preset.Color)
	}
	if preset.Background != "" {
		parts = append(parts, "bg="+preset.Background)
	}
	if preset.Speed != 0 {
		parts = append(parts, fmt.Sprintf("speed=%d", preset.Speed))
	}
	if preset.Brightness != 0 {
		parts = append(parts, fmt.Sprintf("brightness=%d", preset.Brightness))
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, " ")
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
