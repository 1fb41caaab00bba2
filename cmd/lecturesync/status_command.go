package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [lecture-id]",
		Short: "Show lecture processing status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *lecture.Store) error {
				if len(args) == 1 {
					id, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil {
						return fmt.Errorf("invalid lecture id %q", args[0])
					}
					return printLectureStatus(cmd, store, id)
				}
				return printQueueStatus(cmd, store)
			})
		},
	}
}

func printQueueStatus(cmd *cobra.Command, store *lecture.Store) error {
	lectures, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(lectures) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
		return nil
	}

	colorize := shouldColorize(cmd.OutOrStdout())
	rows := make([][]string, 0, len(lectures))
	for _, lec := range lectures {
		rows = append(rows, []string{
			strconv.FormatInt(lec.ID, 10),
			lec.Title,
			colorStatus(lec.Status, colorize),
			progressColumn(lec),
			lec.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	table := renderTable(
		[]string{"ID", "Title", "Status", "Progress", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}

func printLectureStatus(cmd *cobra.Command, store *lecture.Store, id int64) error {
	lec, err := store.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if lec == nil {
		return fmt.Errorf("lecture %d not found", id)
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Lecture %d: %s\n", lec.ID, lec.Title)
	fmt.Fprintf(out, "  Status:   %s\n", colorStatus(lec.Status, colorize))
	fmt.Fprintf(out, "  Source:   %s\n", lec.SourceURL)
	if lec.Language != "" {
		fmt.Fprintf(out, "  Language: %s\n", languageName(lec.Language))
	}
	if lec.Duration > 0 {
		fmt.Fprintf(out, "  Duration: %s\n", formatDuration(lec.Duration))
	}
	if lec.SlideCount > 0 {
		fmt.Fprintf(out, "  Slides:   %d\n", lec.SlideCount)
	}
	if progress := progressColumn(lec); progress != "" {
		fmt.Fprintf(out, "  Progress: %s\n", progress)
	}
	if lec.Status == lecture.StatusFailed {
		fmt.Fprintf(out, "  Error:    [%s] %s\n", lec.ErrorKind, lec.ErrorMessage)
	}
	return nil
}

func progressColumn(lec *lecture.Lecture) string {
	stage := strings.TrimSpace(lec.ProgressStage)
	if stage == "" {
		return ""
	}
	if lec.ProgressMessage != "" {
		return fmt.Sprintf("%s (%.0f%%) %s", stage, lec.ProgressPercent, lec.ProgressMessage)
	}
	return fmt.Sprintf("%s (%.0f%%)", stage, lec.ProgressPercent)
}

func colorStatus(status lecture.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	switch status {
	case lecture.StatusCompleted:
		return ansiGreen + string(status) + ansiReset
	case lecture.StatusFailed:
		return ansiRed + string(status) + ansiReset
	case lecture.StatusPending:
		return string(status)
	default:
		return ansiYellow + string(status) + ansiReset
	}
}

// languageName renders a BCP 47 code like "en" as "English (en)". Unknown
// codes pass through untouched.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
