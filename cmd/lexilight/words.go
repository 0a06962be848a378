package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/db"
)

func wordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage tracked words",
	}
	cmd.AddCommand(wordsAddCmd(a), wordsListCmd(a), wordsRmCmd(a), wordsLevelCmd(a),
		wordsExportCmd(a), wordsImportCmd(a))
	return cmd
}

func wordsAddCmd(a *app) *cobra.Command {
	var w db.Word
	cmd := &cobra.Command{
		Use:   "add <word>",
		Short: "Track a new word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w.Word = args[0]
			created, err := db.CreateWord(a.conn, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) at level %d\n", created.Word, created.ID, created.Level)
			a.publishWords(cmd.Context())
			return nil
		},
	}
	cmd.Flags().IntVarP(&w.Level, "level", "l", 1, "Level from 1 (new) to 5 (known)")
	cmd.Flags().StringVar(&w.Language, "language", "", "Language code, e.g. ja")
	cmd.Flags().StringVar(&w.Definition, "definition", "", "Definition shown on hover")
	cmd.Flags().StringVar(&w.Notes, "notes", "", "Free-form notes")
	return cmd
}

func wordsListCmd(a *app) *cobra.Command {
	var filter db.WordFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked words",
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := db.ListWords(a.conn, filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWORD\tLEVEL\tLANGUAGE\tDEFINITION")
			for _, w := range words {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", w.ID, w.Word, w.Level, w.Language, w.Definition)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.Language, "language", "", "Only words of this language")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Only words containing this text")
	cmd.Flags().IntVar(&filter.Level, "level", 0, "Only words at this level")
	return cmd
}

func wordsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Stop tracking a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.DeleteWord(a.conn, args[0]); err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			a.publishWords(cmd.Context())
			return nil
		},
	}
}

func wordsLevelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "level <id> <level>",
		Short: "Change a word's level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid level %q", args[1])
			}
			if err := db.UpdateWordLevel(a.conn, args[0], level); err != nil {
				return fmt.Errorf("update %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s to level %d\n", args[0], level)
			a.publishWords(cmd.Context())
			return nil
		},
	}
}

func wordsExportCmd(a *app) *cobra.Command {
	var (
		filter db.WordFilter
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write tracked words as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				return db.ExportCSV(a.conn, cmd.OutOrStdout(), filter)
			}
			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := db.ExportCSV(a.conn, file, filter); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "File to write (default stdout)")
	cmd.Flags().StringVar(&filter.Language, "language", "", "Only words of this language")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Only words containing this text")
	cmd.Flags().IntVar(&filter.Level, "level", 0, "Only words at this level")
	return cmd
}

func wordsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Add or replace words from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}

			result, err := db.ImportCSV(a.conn, r)
			if err != nil {
				return err
			}
			for _, msg := range result.Errors {
				log.Printf("Warning: %s", msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d words, updated %d, skipped %d.\n",
				result.Imported, result.Updated, result.Skipped)
			if result.Changed() {
				a.publishWords(cmd.Context())
			}
			return nil
		},
	}
}
