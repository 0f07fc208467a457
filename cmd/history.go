package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/history"
	"github.com/tanq16/rawst/internal/output"
	"github.com/tanq16/rawst/internal/utils"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded downloads",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store, err := history.Open(cfg.History.Backend, cfg.HistoryPath())
			if err != nil {
				fail("Error opening history", err)
			}
			closers = append(closers, store)
			entries, err := store.List(cmd.Context())
			if err != nil {
				fail("Error reading history", err)
			}
			if failedOnly {
				var unfinished []history.Entry
				for _, entry := range entries {
					if entry.Status != history.StatusCompleted {
						unfinished = append(unfinished, entry)
					}
				}
				entries = unfinished
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			if len(entries) == 0 {
				output.PrintInfo("No downloads recorded")
				return
			}
			output.PrintHeader(fmt.Sprintf("%-8s  %-9s  %10s  %-19s  %s", "ID", "STATUS", "SIZE", "TIME", "FILE"))
			for _, entry := range entries {
				fmt.Println(formatEntry(entry))
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many recent downloads (0 for all)")
	cmd.Flags().BoolVar(&failedOnly, "unfinished", false, "Only show downloads that can be resumed")
	return cmd
}

func formatEntry(entry history.Entry) string {
	id := entry.ID
	if len(id) > 8 {
		id = id[:8]
	}
	status := fmt.Sprintf("%-9s", entry.Status)
	switch entry.Status {
	case history.StatusCompleted:
		status = output.FSuccess(status)
	case history.StatusFailed:
		status = output.FError(status)
	default:
		status = output.FPending(status)
	}
	line := fmt.Sprintf("%-8s  %s  %10s  %-19s  %s",
		id, status, utils.FormatBytes(uint64(max(entry.TotalSize, 0))),
		entry.Timestamp.Local().Format(time.DateTime), entry.Filename)
	if entry.Error != "" {
		line += "\n" + strings.Repeat(" ", 10) + output.FDebug(entry.Error)
	}
	return line
}
