package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipquiz/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *journal.Store) error {
				var (
					entries []*journal.Entry
					err     error
				)
				if owner = strings.TrimSpace(owner); owner != "" {
					entries, err = store.ListByOwner(cmd.Context(), owner, limit)
				} else {
					entries, err = store.List(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					if entries == nil {
						entries = []*journal.Entry{}
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(historyHeaders, historyRows(entries), historyAligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only show runs for this owner key")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

var (
	historyHeaders = []string{"ID", "Owner", "State", "Result", "Duration", "Started"}
	historyAligns  = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
)

func historyRows(entries []*journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			shortID(e.ID),
			e.Owner,
			e.State,
			entryResult(e),
			formatDuration(e.Duration()),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func entryResult(e *journal.Entry) string {
	switch {
	case e.ErrorKind != "":
		return e.ErrorKind
	case e.QuestionCount > 0:
		return truncate(e.QuizTitle, 40) + " (" + strconv.Itoa(e.QuestionCount) + "q)"
	case e.FinishedAt == nil:
		return "running"
	default:
		return "-"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
