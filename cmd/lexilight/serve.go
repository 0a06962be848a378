package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/api"
	"github.com/japaniel/lexilight/pkg/dictionary"
	"github.com/japaniel/lexilight/pkg/events"
	"github.com/japaniel/lexilight/pkg/metrics"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the word store, highlighting and live sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	hl := a.highlighter()
	h := api.NewHandler(a.conn, hl)
	h.Fetcher = a.fetcher()
	h.Selector = a.cfg.Highlight.Selector
	h.Sessions = api.NewSessionRegistry(hl, a.cfg.Highlight.Window, a.cfg.Highlight.Selector)
	h.WithMetrics(metrics.NewRecorder())
	h.Segmenters = a.segmenters()
	h.Logger = logger
	defer h.Sessions.CloseAll()

	if _, err := os.Stat(a.cfg.Dictionary.Path); err == nil {
		start := time.Now()
		entries, err := dictionary.LoadJMdictSimplified(a.cfg.Dictionary.Path)
		if err != nil {
			logger.Printf("Warning: Failed to load dictionary: %v", err)
		} else {
			h.Dictionary = dictionary.NewImporter(a.conn, entries)
			logger.Printf("Dictionary loaded (%d entries) in %v", len(entries), time.Since(start))
		}
	}

	if a.cfg.NATS.URL != "" {
		nc, err := events.Connect(a.cfg.NATS.URL, "lexilight-server")
		if err != nil {
			return err
		}
		defer nc.Drain()
		h.Publisher = events.NewPublisher(nc, a.cfg.NATS.Subject)

		// Edits made by other processes reach this server's sessions.
		sub := events.NewSubscriber(h.Sessions.DeliverAll)
		sub.Logger = logger
		if err := sub.Start(nc, a.cfg.NATS.Subject); err != nil {
			return err
		}
		defer sub.Stop()
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewRouter(h, a.cfg.Server.Token, a.cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Printf("Shutting down")
	return srv.Shutdown(shutdownCtx)
}
