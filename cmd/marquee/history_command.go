package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"marquee/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent playback history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("invalid history limit: %d", limit)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Records)
				}
				if len(resp.Records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No playback history recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Records))
				for _, rec := range resp.Records {
					rows = append(rows, []string{
						historyTime(rec.CreatedAt),
						rec.Kind,
						rec.Name,
						historyOutcome(rec),
						(time.Duration(rec.ElapsedMS) * time.Millisecond).String(),
					})
				}
				table := renderTable([]string{"When", "Kind", "Name", "Outcome", "Elapsed"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func historyTime(createdAt string) string {
	parsed, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return createdAt
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

func historyOutcome(rec ipc.HistoryEntry) string {
	if rec.OK {
		return "ok"
	}
	if rec.Error != "" {
		return "failed: " + rec.Error
	}
	return "failed"
}
