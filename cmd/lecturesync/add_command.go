package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var language string

	cmd := &cobra.Command{
		Use:   "add <video-source> <presentation-file>",
		Short: "Queue a lecture for processing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			presentation := strings.TrimSpace(args[1])
			if source == "" {
				return fmt.Errorf("video source must not be empty")
			}

			presentation, err := config.ExpandPath(presentation)
			if err != nil {
				return fmt.Errorf("resolve presentation path: %w", err)
			}
			presentation, err = filepath.Abs(presentation)
			if err != nil {
				return fmt.Errorf("resolve presentation path: %w", err)
			}
			if info, err := os.Stat(presentation); err != nil || info.IsDir() {
				return fmt.Errorf("presentation file %s is not readable", presentation)
			}

			if title == "" {
				base := filepath.Base(presentation)
				title = strings.TrimSuffix(base, filepath.Ext(base))
			}

			return ctx.withStore(func(cfg *config.Config, store *lecture.Store) error {
				lec, err := store.NewLecture(cmd.Context(), title, source, presentation, language)
				if err != nil {
					return fmt.Errorf("queue lecture: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued lecture %d: %s\n", lec.ID, lec.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Lecture title (defaults to the presentation filename)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Spoken language hint for transcription")
	return cmd
}
