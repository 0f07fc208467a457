package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the rawst configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file, history file and log directory",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := os.Stat(cfg.ConfigFile); err == nil && !force {
				fail(fmt.Sprintf("%s already exists, use --force to overwrite", cfg.ConfigFile), nil)
			}
			if err := cfg.Initialise(); err != nil {
				fail("Error creating configuration", err)
			}
			output.PrintSuccess(fmt.Sprintf("Configuration written to %s", cfg.ConfigFile))
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration paths and defaults",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rows := [][2]string{
				{"config file", cfg.ConfigFile},
				{"download dir", cfg.DownloadDir},
				{"cache dir", cfg.CacheDir},
				{"history", fmt.Sprintf("%s (%s)", cfg.HistoryPath(), cfg.History.Backend)},
				{"log dir", cfg.LogDir},
				{"threads", fmt.Sprint(cfg.Threads)},
				{"workers", fmt.Sprint(cfg.Workers)},
				{"retries", fmt.Sprint(cfg.Retry.Attempts)},
			}
			for _, row := range rows {
				fmt.Printf("%s %s\n", output.FInfo(fmt.Sprintf("%-13s", row[0])), row[1])
			}
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
