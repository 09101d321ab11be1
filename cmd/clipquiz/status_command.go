package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"clipquiz/internal/config"
	"clipquiz/internal/deps"
	"clipquiz/internal/journal"
	"clipquiz/internal/notifications"
	"clipquiz/internal/preflight"
	"clipquiz/internal/services/llm"
	"clipquiz/internal/services/whisperx"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipLLM bool
	var testNotify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report dependency, service, and journal health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			writeSection(out, "Dependencies", colorize)
			for _, req := range deps.Requirements(cfg) {
				status := deps.CheckBinaries([]deps.Requirement{req})[0]
				if !status.Available {
					failures++
					fmt.Fprintln(out, renderStatusLine(status.Name, statusError, status.Detail, colorize))
					continue
				}
				message := status.Command
				if version, err := deps.ProbeVersion(cmd.Context(), req); err == nil && version != "" {
					message = fmt.Sprintf("%s (%s)", version, status.Command)
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, statusOK, message, colorize))
			}

			writeSection(out, "Paths", colorize)
			pathChecks := []preflight.Result{
				preflight.CheckDirectoryAccess("Workspace", cfg.Paths.WorkspaceDir),
				preflight.CheckFreeSpace("Free space", cfg.Paths.WorkspaceDir, preflight.MinWorkspaceFree),
				preflight.CheckJournal(cfg),
				preflight.CheckDirectoryAccess("Logs", cfg.Paths.LogDir),
			}
			for _, r := range pathChecks {
				failures += printResult(out, r, statusError, colorize)
			}

			writeSection(out, "Services", colorize)
			fmt.Fprintln(out, renderStatusLine("Models", statusInfo, fmt.Sprintf("%s / whisperx %s", llm.Model, whisperx.Model), colorize))
			if skipLLM {
				fmt.Fprintln(out, renderStatusLine("Generation LLM", statusInfo, "skipped", colorize))
			} else {
				failures += printResult(out, preflight.CheckLLM(cmd.Context(), "Generation LLM", cfg.LLM), statusError, colorize)
			}
			printResult(out, preflight.CheckEventsFromConfig(cfg), statusWarn, colorize)
			var notifier notifications.Service
			if testNotify {
				notifier = notifications.NewService(cfg)
			}
			printResult(out, preflight.CheckNotificationsFromConfig(cmd.Context(), cfg, notifier), statusWarn, colorize)

			writeSection(out, "Journal", colorize)
			if err := printJournalStats(cmd.Context(), out, cfg, colorize); err != nil {
				fmt.Fprintln(out, renderStatusLine("Journal", statusError, err.Error(), colorize))
				failures++
			}

			if failures > 0 {
				return fmt.Errorf("status: %d check(s) failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipLLM, "skip-llm", false, "Skip the generation service round trip")
	cmd.Flags().BoolVar(&testNotify, "test-notify", false, "Send a test notification when ntfy is configured")
	return cmd
}

func writeSection(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

// printResult renders r and returns 1 when it failed with failKind statusError.
func printResult(out io.Writer, r preflight.Result, failKind statusKind, colorize bool) int {
	if r.Passed {
		fmt.Fprintln(out, renderStatusLine(r.Name, statusOK, r.Detail, colorize))
		return 0
	}
	fmt.Fprintln(out, renderStatusLine(r.Name, failKind, r.Detail, colorize))
	if failKind == statusError {
		return 1
	}
	return 0
}

func printJournalStats(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) error {
	store, err := journal.Open(cfg.Paths.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, stats[k]))
	}
	fmt.Fprintln(out, renderStatusLine("Runs", statusInfo, strings.Join(parts, " "), colorize))
	return nil
}
