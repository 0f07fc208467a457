package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/output"
	"github.com/tanq16/rawst/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [FILENAME]",
		Short: "Clean up temporary chunk files",
		Long:  "Remove the chunk files of FILENAME, or every chunk file when no name is given.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stem := ""
			if len(args) == 1 {
				stem = engine.FileStem(args[0])
			}
			removed, err := utils.CleanTempFiles(tempDir(), stem)
			if err != nil {
				fail("Error cleaning up temporary files", err)
			}
			if removed == 0 {
				output.PrintWarning("No temporary files found")
				return
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary files", removed))
		},
	}
}
