package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipquiz/internal/journal"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a recorded conversion run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withJournal(func(store *journal.Store) error {
				entry, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("job %s not found", id)
				}
				if jsonOutput {
					return writeJSON(cmd, entry)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderEntry(entry))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderEntry(e *journal.Entry) string {
	rows := [][]string{
		{"ID", e.ID},
		{"Owner", e.Owner},
		{"Source", e.SourceURL},
		{"State", e.State},
		{"Started", e.CreatedAt.Local().Format("2006-01-02 15:04:05")},
		{"Duration", formatDuration(e.Duration())},
	}
	if e.QuizTitle != "" {
		rows = append(rows, []string{"Quiz", e.QuizTitle}, []string{"Questions", strconv.Itoa(e.QuestionCount)})
	}
	if e.ErrorKind != "" {
		rows = append(rows, []string{"Error kind", e.ErrorKind}, []string{"Error", e.ErrorMessage})
	}
	if e.CleanupError != "" {
		rows = append(rows, []string{"Cleanup error", e.CleanupError})
	}
	rows = append(rows, []string{"Succeeded", yesNo(e.Succeeded())})
	return renderTable([]string{"Field", "Value"}, rows, nil)
}
