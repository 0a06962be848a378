package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/dictionary"
)

func importDictCmd(a *app) *cobra.Command {
	var (
		download bool
		language string
	)
	cmd := &cobra.Command{
		Use:   "import-dict [path]",
		Short: "Fill in missing definitions from a JMdict-simplified JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Dictionary.Path
			if len(args) == 1 {
				path = args[0]
			}
			logger := log.New(os.Stderr, "", log.LstdFlags)
			if download {
				d := dictionary.NewDownloader()
				d.Logger = logger
				if err := d.Ensure(cmd.Context(), path); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Loading dictionary from %s...\n", path)
			entries, err := dictionary.LoadJMdictSimplified(path)
			if err != nil {
				return fmt.Errorf("load dictionary: %w", err)
			}
			im := dictionary.NewImporter(a.conn, entries)
			im.Logger = logger
			n, err := im.FillDefinitions(language)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated definitions for %d words.\n", n)
			if n > 0 {
				a.publishWords(cmd.Context())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, "Download the latest dictionary if the file is missing")
	cmd.Flags().StringVar(&language, "language", "ja", "Only fill words of this language; empty means all")
	return cmd
}
