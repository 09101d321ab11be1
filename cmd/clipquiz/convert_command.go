package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipquiz/internal/conversion"
	"clipquiz/internal/journal"
	"clipquiz/internal/quiz"
)

const defaultOwner = "local"

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "convert <url>",
		Short: "Convert a video into a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withJournal(func(store *journal.Store) error {
				bundle, err := buildPipeline(cfg, logger, store)
				if err != nil {
					return err
				}
				defer bundle.Close()

				job, err := bundle.pipeline.Execute(runCtx, args[0], owner)
				if err != nil {
					return fmt.Errorf("job %s: %s (%s): %w", job.ID, conversion.KindName(err), conversion.Classify(err), err)
				}
				if job.CleanupErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", job.CleanupErr)
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						JobID    string `json:"job_id"`
						VideoURL string `json:"video_url"`
						*quiz.Document
					}{job.ID, job.SourceURL, job.Document})
				}
				renderQuiz(cmd.OutOrStdout(), job)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", defaultOwner, "Owner key used to namespace the workspace")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the quiz as JSON")
	return cmd
}

func renderQuiz(out io.Writer, job *conversion.Job) {
	doc := job.Document
	fmt.Fprintf(out, "%s\n", doc.Title)
	if desc := strings.TrimSpace(doc.Description); desc != "" {
		fmt.Fprintf(out, "%s\n", desc)
	}
	fmt.Fprintf(out, "Job %s in %s\n", job.ID, job.Duration().Round(time.Millisecond))
	for i, q := range doc.Questions {
		fmt.Fprintf(out, "\n%2d. %s\n", i+1, q.Title)
		for j, opt := range q.Options {
			marker := " "
			if opt == q.Answer {
				marker = "*"
			}
			fmt.Fprintf(out, "   %s %c) %s\n", marker, 'a'+j, opt)
		}
	}
}
