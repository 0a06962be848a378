package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/ingest"
	"github.com/japaniel/lexilight/pkg/watch"
)

type highlightFlags struct {
	url        string
	readerMode bool
	format     string
	out        string
	record     bool
	language   string
	selector   string
	workers    int
}

func highlightCmd(a *app) *cobra.Command {
	var f highlightFlags
	cmd := &cobra.Command{
		Use:   "highlight [file or glob...]",
		Short: "Highlight tracked words in HTML files or a fetched page",
		Example: `  lexilight highlight 'notes/**/*.html' --out highlighted/
  lexilight highlight --url https://example.com/article --reader --format markdown --record`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.url == "" && len(args) == 0 {
				return fmt.Errorf("provide files to highlight or --url")
			}
			return a.highlight(cmd, args, f)
		},
	}
	cmd.Flags().StringVar(&f.url, "url", "", "URL to fetch and highlight")
	cmd.Flags().BoolVar(&f.readerMode, "reader", false, "Extract the article before highlighting")
	cmd.Flags().StringVar(&f.format, "format", "html", "Output format: html or markdown")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Directory for highlighted copies (default stdout)")
	cmd.Flags().BoolVar(&f.record, "record", false, "Record word sightings per page in the database")
	cmd.Flags().StringVar(&f.language, "language", "", "Only highlight words of this language")
	cmd.Flags().StringVar(&f.selector, "selector", "", "CSS selector for the content root (overrides config)")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "Pages highlighted in parallel")
	return cmd
}

func (a *app) highlight(cmd *cobra.Command, args []string, f highlightFlags) error {
	ctx := cmd.Context()
	format, err := ingest.ParseFormat(f.format)
	if err != nil {
		return err
	}

	var pages []ingest.Page
	var names []string
	if f.url != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Fetching %s...\n", f.url)
		body, err := a.fetcher().Fetch(ctx, f.url)
		if err != nil {
			return err
		}
		page, err := ingest.LoadPage(body, f.url, f.readerMode)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		names = append(names, urlFileName(f.url))
	}

	files, err := watch.Expand(args)
	if err != nil {
		return err
	}
	if len(args) > 0 && len(files) == 0 {
		return fmt.Errorf("no files match %s", strings.Join(args, " "))
	}
	for _, path := range files {
		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		page, err := ingest.LoadPage(body, "file://"+filepath.ToSlash(abs), f.readerMode)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		pages = append(pages, page)
		names = append(names, path)
	}

	if f.language == "" {
		f.language = a.cfg.Highlight.Language
	}
	words, err := db.LoadWordList(a.conn, f.language)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No tracked words yet; add some with `lexilight words add`.")
	}

	ig := ingest.NewIngester(nil, a.highlighter())
	if f.record {
		ig.DB = a.conn
	}
	ig.Workers = f.workers
	if !f.readerMode {
		ig.Selector = a.cfg.Highlight.Selector
		if f.selector != "" {
			ig.Selector = f.selector
		}
	}
	ig.OnPage = func(pr ingest.PageResult) error {
		return writePage(cmd.OutOrStdout(), f.out, names[pr.Index], pr.Page, format, len(pages) > 1)
	}

	sum, err := ig.Ingest(ctx, pages, words)
	if err != nil {
		return fmt.Errorf("highlight failed: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Processing complete. Highlighted %d pages with %d spans; recorded %d word occurrences.\n",
		sum.Pages, sum.Spans, sum.Recorded)
	return nil
}

func writePage(stdout io.Writer, outDir, name string, page ingest.Page, format ingest.Format, many bool) error {
	if outDir == "" {
		if many {
			fmt.Fprintf(stdout, "<!-- %s -->\n", name)
		}
		if err := ingest.Render(stdout, page, format); err != nil {
			return err
		}
		_, err := fmt.Fprintln(stdout)
		return err
	}

	dst := watch.OutputPath(outDir, name, format)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	file, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := ingest.Render(file, page, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// urlFileName turns a URL into a name usable for an output file.
func urlFileName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page.html"
	}
	name := unsafeFileChars.ReplaceAllString(strings.Trim(u.Host+u.Path, "/"), "_")
	if name == "" {
		name = "page"
	}
	return name + ".html"
}
