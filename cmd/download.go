package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/scheduler"
)

func newDownloadCmd() *cobra.Command {
	var outputName string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download [URL...] [--output NAME]",
		Short: "Download one or more files via HTTP/HTTPS or S3",
		Long: `Download files over parallel byte-range connections.

Examples:
  rawst download https://example.com/image.iso -t 8
  rawst download s3://mybucket/path/to/file.zip --profile myprofile
  rawst download https://example.com/a.bin https://example.com/b.bin -w 2`,
		Aliases: []string{"dl", "get"},
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if outputName != "" && len(args) > 1 {
				fail("--output can only be used with a single URL", nil)
			}
			if outputDir == "" {
				outputDir = cfg.DownloadDir
			}
			jobs := make([]*engine.DownloadJob, 0, len(args))
			for _, link := range args {
				jobs = append(jobs, &engine.DownloadJob{
					URL:            link,
					OutputFilename: outputName,
					OutputDir:      outputDir,
					TempDir:        tempDir(),
					Threads:        cfg.Threads,
				})
			}
			eng, _ := newEngine(cmd.Context())
			if err := scheduler.Run(cmd.Context(), eng, jobs, scheduler.Options{Workers: cfg.Workers, Out: cmd.OutOrStdout()}); err != nil {
				fail("Encountered failed operation(s)", nil)
			}
		},
	}

	cmd.Flags().StringVarP(&outputName, "output", "o", "", "Output file name (inferred from the server or URL if not provided)")
	cmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Output directory (default from config)")
	return cmd
}
