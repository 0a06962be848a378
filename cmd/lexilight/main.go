// Command lexilight highlights tracked vocabulary in web pages and serves the
// word store over HTTP.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/config"
	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/events"
	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/japaniel/lexilight/pkg/reader"
	"github.com/japaniel/lexilight/pkg/story"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	configPath string
	dbPath     string

	cfg  *config.Config
	conn *sql.DB
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "lexilight",
		Short: "Highlight the words you are learning wherever you read",
		Long: `lexilight keeps a list of words you are learning, each with a level
from 1 to 5, and highlights them in HTML pages: files, fetched URLs, or live
pages held open by the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultFile, "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "Path to SQLite database (overrides config)")

	cmd.AddCommand(
		serveCmd(a),
		highlightCmd(a),
		watchCmd(a),
		wordsCmd(a),
		storyCmd(a),
		flashcardCmd(a),
		importDictCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.conn = conn
	return nil
}

func (a *app) close() {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

func (a *app) highlighter() *highlight.Highlighter {
	hl := highlight.New()
	hl.HugWhitespace = a.cfg.Highlight.HugWhitespace
	return hl
}

func (a *app) fetcher() *reader.Fetcher {
	return reader.NewFetcher(a.cfg.Reader.Timeout, a.cfg.Reader.UserAgent, a.cfg.Reader.MaxBodySize)
}

// segmenters registers the Japanese analyzer. Without it Japanese text is
// split on whitespace.
func (a *app) segmenters() story.Segmenters {
	analyzer, err := reader.NewAnalyzer()
	if err != nil {
		log.Printf("Warning: Japanese analyzer unavailable: %v", err)
		return nil
	}
	return story.Segmenters{"ja": analyzer}
}

// publishWords tells NATS subscribers about the current list, if configured.
func (a *app) publishWords(ctx context.Context) {
	if a.cfg.NATS.URL == "" {
		return
	}
	nc, err := events.Connect(a.cfg.NATS.URL, "lexilight-cli")
	if err != nil {
		log.Printf("Warning: %v", err)
		return
	}
	defer nc.Close()

	words, err := db.LoadWordList(a.conn, "")
	if err != nil {
		log.Printf("Warning: reload word list: %v", err)
		return
	}
	if err := events.NewPublisher(nc, a.cfg.NATS.Subject).PublishWords(ctx, words); err != nil {
		log.Printf("Warning: %v", err)
		return
	}
	if err := nc.Flush(); err != nil {
		log.Printf("Warning: flush NATS: %v", err)
	}
}
