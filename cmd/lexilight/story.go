package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/story"
)

func storyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Save texts and see how much of their vocabulary you know",
	}
	cmd.AddCommand(storyAddCmd(a), storyShowCmd(a), storyListCmd(a))
	return cmd
}

func storyAddCmd(a *app) *cobra.Command {
	var (
		s    db.Story
		file string
	)
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Save a story from an argument, a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1:
				s.Content = args[0]
			case file != "":
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				s.Content = string(b)
			default:
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				s.Content = string(b)
			}
			if s.Title == "" {
				return errors.New("--title is required")
			}

			saved, err := story.Save(a.conn, s, a.segmenters())
			if err != nil {
				return err
			}
			return printStory(cmd.OutOrStdout(), saved)
		},
	}
	cmd.Flags().StringVarP(&s.Title, "title", "t", "", "Story title (unique)")
	cmd.Flags().StringVar(&s.Language, "language", "", "Language code; ja uses the morphological analyzer")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the story from a file")
	return cmd
}

func storyShowCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "show <id|title>",
		Short: "Show a story's level distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := db.GetStory(a.conn, args[0])
			if errors.Is(err, db.ErrNotFound) {
				s, err = db.GetStoryByTitle(a.conn, args[0])
			}
			if err != nil {
				return fmt.Errorf("story %q: %w", args[0], err)
			}
			if refresh {
				// Levels may have moved since the story was saved.
				if s, err = story.Save(a.conn, s, a.segmenters()); err != nil {
					return err
				}
			}
			return printStory(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Recompute the distribution against current levels")
	return cmd
}

func storyListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			stories, err := db.ListStories(a.conn)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tLANGUAGE\tDISTRIBUTION")
			for _, s := range stories {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Language, distributionSummary(s))
			}
			return tw.Flush()
		},
	}
}

func printStory(w io.Writer, s db.Story) error {
	_, err := fmt.Fprintf(w, "%s (%s)\n%s\n", s.Title, s.ID, distributionSummary(s))
	return err
}

func distributionSummary(s db.Story) string {
	dist, err := story.ParseDistribution(s.Distribution)
	if err != nil {
		return "N/A"
	}
	return story.Format(dist)
}
