package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipquiz/internal/workspace"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect and clean per-owner scratch directories",
	}
	workspaceCmd.AddCommand(newWorkspaceListCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceCleanCommand(ctx))
	return workspaceCmd
}

func newWorkspaceListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List owner directories left in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := workspace.NewManager(cfg.Paths.WorkspaceDir, nil).List()
			if err != nil {
				return err
			}
			if jsonOutput {
				if dirs == nil {
					dirs = []workspace.DirInfo{}
				}
				return writeJSON(cmd, dirs)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintf(out, "Workspace %s is empty\n", cfg.Paths.WorkspaceDir)
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			for _, d := range dirs {
				rows = append(rows, []string{
					d.Name,
					strconv.Itoa(d.Files),
					humanize.IBytes(uint64(d.Size)),
					humanize.Time(d.ModTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Owner", "Files", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newWorkspaceCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove idle owner directories older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			age := maxAge
			if !cmd.Flags().Changed("max-age") {
				age = cfg.StaleWorkspaceAge()
			}
			res := workspace.NewManager(cfg.Paths.WorkspaceDir, logger).CleanStale(cmd.Context(), age)

			out := cmd.OutOrStdout()
			for _, path := range res.Removed {
				fmt.Fprintf(out, "removed %s\n", path)
			}
			for _, path := range res.Skipped {
				fmt.Fprintf(out, "skipped %s (job in progress)\n", path)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(out, "failed %s: %v\n", e.Path, e.Error)
			}
			fmt.Fprintf(out, "Removed %d, skipped %d, failed %d\n", len(res.Removed), len(res.Skipped), len(res.Errors))
			if len(res.Errors) > 0 {
				return fmt.Errorf("workspace clean: %d director(ies) could not be removed", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Minimum age of directories to remove (defaults to pipeline.stale_workspace_hours)")
	return cmd
}
