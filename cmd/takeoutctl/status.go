package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takeoutools/takeoutctl/internal/archive"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display retrieval progress for the configured job",
		Long: `Display the persisted retrieval state for the configured export job:
last completed chunk, target range, and where a --continue run would
resume. The resume point also accounts for finalized files already in
the output directory.`,
		Example: `  takeoutctl status
  takeoutctl status --config /etc/takeoutctl/takeoutctl.yaml`,
		RunE: statusRun,
	}

	return cmd
}

func statusRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil || globalStore == nil {
		return fmt.Errorf("components not initialized")
	}

	state, err := globalStore.LoadState(globalCfg.Job.ID)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}

	fmt.Printf("Job:        %s\n", globalCfg.Job.ID)
	fmt.Printf("Max index:  %d\n", globalCfg.Job.MaxIndex)

	if state == nil {
		fmt.Println("Progress:   none recorded")
		resume := archive.NextIndex(globalCfg.Download.OutputDir)
		fmt.Printf("Resume at:  %d (from output directory scan)\n", resume)
		return nil
	}

	fmt.Printf("Completed:  %d of %d\n", state.LastCompletedIndex, state.MaxIndex)
	fmt.Printf("Output:     %s\n", state.OutputDir)
	fmt.Printf("Updated:    %s\n", state.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	resume := max(state.LastCompletedIndex+1, archive.NextIndex(state.OutputDir))
	fmt.Printf("Resume at:  %d\n", resume)
	return nil
}
