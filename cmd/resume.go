package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/history"
	"github.com/tanq16/rawst/internal/output"
	"github.com/tanq16/rawst/internal/scheduler"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [ID]",
		Short: "Resume an interrupted or failed download from history",
		Long: `Resume a download recorded in history. The ID may be a unique prefix.
Chunks whose temp files are already complete are not downloaded again.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, store := newEngine(cmd.Context())
			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				fail("Error finding download", err)
			}
			if entry.Status == history.StatusCompleted {
				output.PrintSuccess(fmt.Sprintf("%s already completed", entry.Filename))
				return
			}
			jobs := []*engine.DownloadJob{engine.JobFromEntry(entry)}
			if err := scheduler.Run(cmd.Context(), eng, jobs, scheduler.Options{Workers: 1, Out: cmd.OutOrStdout()}); err != nil {
				fail("Encountered failed operation(s)", nil)
			}
		},
	}
}
