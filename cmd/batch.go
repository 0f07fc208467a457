package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/scheduler"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Long: `Process multiple downloads from a YAML file grouped by source type.

Example file:
  http:
    - link: https://example.com/a.iso
      op: isos/a.iso
  s3:
    - link: mybucket/b.tar
      threads: 16`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, err := scheduler.LoadBatch(args[0])
			if err != nil {
				fail("Error loading batch file", err)
			}
			jobs := scheduler.JobsFromEntries(entries, cfg.DownloadDir, cfg.Threads)
			for _, job := range jobs {
				job.TempDir = tempDir()
			}
			eng, _ := newEngine(cmd.Context())
			if err := scheduler.Run(cmd.Context(), eng, jobs, scheduler.Options{Workers: cfg.Workers, Out: cmd.OutOrStdout()}); err != nil {
				fail("Encountered failed operation(s)", nil)
			}
		},
	}
	return cmd
}
