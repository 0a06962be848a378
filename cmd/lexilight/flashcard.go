package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/flashcard"
)

func flashcardCmd(a *app) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "flashcard",
		Short: "Review words, weighted toward the ones you are still learning",
		Long: `Shows a definition, waits for Enter, then reveals the word. Type a new
level from 1 to 5, leave it blank to keep the current one, or type q to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.review(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), language)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Only review words of this language")
	return cmd
}

func (a *app) review(ctx context.Context, in io.Reader, out io.Writer, language string) error {
	scanner := bufio.NewScanner(in)
	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	reviewed := 0
	for {
		words, err := db.LoadWordList(a.conn, language)
		if err != nil {
			return err
		}
		card, err := flashcard.Pick(words, language, nil)
		if errors.Is(err, flashcard.ErrNoWords) || errors.Is(err, flashcard.ErrNoEligible) {
			fmt.Fprintln(out, "Nothing to review.")
			break
		}
		if err != nil {
			return err
		}

		prompt := card.Definition
		if prompt == "" {
			prompt = "(no definition)"
		}
		fmt.Fprintf(out, "\n%s\nPress Enter to reveal...", prompt)
		if line, ok := readLine(); !ok || line == "q" {
			break
		}
		fmt.Fprintf(out, "%s  [level %d]\nNew level (1-5, blank keeps, q quits): ", card.Text(), card.Level)
		line, ok := readLine()
		if !ok || line == "q" {
			break
		}
		reviewed++
		if line == "" {
			continue
		}
		level, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(out, "Ignoring %q: not a number\n", line)
			continue
		}
		if err := db.UpdateWordLevel(a.conn, card.ID, level); err != nil {
			fmt.Fprintf(out, "Could not update: %v\n", err)
		}
	}
	fmt.Fprintf(out, "\nReviewed %d card(s).\n", reviewed)
	if reviewed > 0 {
		a.publishWords(ctx)
	}
	return scanner.Err()
}
