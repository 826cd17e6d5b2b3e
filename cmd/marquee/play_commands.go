package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/ipc"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <animation>",
		Short: "Play a stored animation on the sign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Play(args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, fmt.Sprintf("Played %s", resp.Result.Name), resp.Result)
			})
		},
	}
}

func newOffCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "off",
		Short: "Blank the sign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Off()
				if err != nil {
					return err
				}
				return printResult(cmd, "Sign blanked", resp.Result)
			})
		},
	}
}

func newOnCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "on",
		Short: "Resume the animation that was playing before the sign was blanked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume()
				if err != nil {
					return err
				}
				return printResult(cmd, fmt.Sprintf("Resumed %s", resp.Result.Name), resp.Result)
			})
		},
	}
}

func newMessageCommand(ctx *commandContext) *cobra.Command {
	var color string
	var background string
	var speed int
	var brightness int

	cmd := &cobra.Command{
		Use:   "message <text>...",
		Short: "Render a text message on the sign",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Message(ipc.MessageRequest{
					Text:       strings.Join(args, " "),
					Color:      color,
					Background: background,
					Speed:      speed,
					Brightness: brightness,
				})
				if err != nil {
					return err
				}
				return printResult(cmd, "Message sent", resp.Result)
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "Text color (name or #RRGGBB)")
	cmd.Flags().StringVar(&background, "background", "", "Background color (name or #RRGGBB)")
	cmd.Flags().IntVar(&speed, "speed", 0, "Scroll speed (sign default when omitted)")
	cmd.Flags().IntVar(&brightness, "brightness", 0, "Brightness (sign default when omitted)")
	return cmd
}

func newPresetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preset <name> [text]...",
		Short: "Render a named preset, optionally overriding its text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				text := strings.Join(args[1:], " ")
				resp, err := client.Preset(args[0], text)
				if err != nil {
					return err
				}
				return printResult(cmd, fmt.Sprintf("Preset %s sent", resp.Result.Name), resp.Result)
			})
		},
	}
}

func printResult(cmd *cobra.Command, action string, res ipc.JobResult) error {
	if !res.OK {
		detail := strings.TrimSpace(res.Error)
		if detail == "" {
			detail = "sign rejected the job"
		}
		return fmt.Errorf("%s", detail)
	}
	elapsed := time.Duration(res.ElapsedMS) * time.Millisecond
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", action, elapsed.Round(10*time.Millisecond))
	return nil
}
