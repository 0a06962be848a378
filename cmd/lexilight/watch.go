package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/events"
	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/japaniel/lexilight/pkg/ingest"
	"github.com/japaniel/lexilight/pkg/watch"
)

func watchCmd(a *app) *cobra.Command {
	var (
		out        string
		format     string
		readerMode bool
		language   string
	)
	cmd := &cobra.Command{
		Use:   "watch <pattern...>",
		Short: "Keep highlighted copies of files up to date as they or the word list change",
		Example: `  lexilight watch 'notes/**/*.html' --out highlighted/`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ingest.ParseFormat(format)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "", log.LstdFlags)
			w, err := watch.New(args, a.highlighter(), watch.Options{
				Window:     a.cfg.Highlight.Window,
				Selector:   a.cfg.Highlight.Selector,
				Format:     f,
				ReaderMode: readerMode,
				OutDir:     out,
				Logger:     logger,
				OnWrite: func(src, dst string, res highlight.Result) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d spans)\n", src, dst, res.Spans)
				},
			})
			if err != nil {
				return err
			}

			if language == "" {
				language = a.cfg.Highlight.Language
			}
			words, err := db.LoadWordList(a.conn, language)
			if err != nil {
				return err
			}
			w.Deliver(words)

			if a.cfg.NATS.URL != "" {
				nc, err := events.Connect(a.cfg.NATS.URL, "lexilight-watch")
				if err != nil {
					return err
				}
				defer nc.Drain()
				sub := events.NewSubscriber(func(wl highlight.WordList) {
					w.Deliver(filterLanguage(wl, language))
				})
				sub.Logger = logger
				if err := sub.Start(nc, a.cfg.NATS.Subject); err != nil {
					return err
				}
				defer sub.Stop()
			}

			logger.Printf("Watching %d pattern(s); press Ctrl-C to stop", len(args))
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Directory for highlighted copies (default next to each file)")
	cmd.Flags().StringVar(&format, "format", "html", "Output format: html or markdown")
	cmd.Flags().BoolVar(&readerMode, "reader", false, "Extract the article before highlighting")
	cmd.Flags().StringVar(&language, "language", "", "Only highlight words of this language")
	return cmd
}

func filterLanguage(words highlight.WordList, language string) highlight.WordList {
	if language == "" {
		return words
	}
	out := make(highlight.WordList, len(words))
	for id, w := range words {
		if w.Language == language {
			out[id] = w
		}
	}
	return out
}
