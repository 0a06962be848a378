package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/highlight"
	"golang.org/x/net/html"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Page is one parsed document to highlight.
type Page struct {
	// URL identifies the page for sighting records. Pages without one are
	// highlighted but not recorded.
	URL      string
	Title    string
	SiteName string
	// Doc is the parsed document. Each page must own its tree.
	Doc *html.Node
}

// PageResult is a highlighted page, delivered in input order.
type PageResult struct {
	Index  int
	Page   Page
	Result highlight.Result
}

// Summary totals an Ingest run.
type Summary struct {
	Pages    int
	Spans    int
	Recorded int64 // occurrences written as sightings
}

// Ingester highlights batches of pages in parallel and records which tracked
// words were found on which page.
type Ingester struct {
	// DB receives sightings. nil disables recording.
	DB          *sql.DB
	Highlighter *highlight.Highlighter
	// Selector picks the content root of each page, e.g. "article". Empty means <body>.
	Selector  string
	BatchSize int
	Workers   int
	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// OnPage is called for every highlighted page, in input order.
	OnPage func(PageResult) error
	// OnProgress is called with the number of pages finished and the total.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB, hl *highlight.Highlighter) *Ingester {
	if hl == nil {
		hl = highlight.New()
	}
	return &Ingester{
		DB:          conn,
		Highlighter: hl,
		BatchSize:   50,
		Workers:     4,
	}
}

type processedPage struct {
	index  int
	page   Page
	result highlight.Result
	err    error
}

// Ingest highlights pages with words. The word list is compiled per pass, so
// callers can hand the same list to concurrent runs.
func (ig *Ingester) Ingest(ctx context.Context, pages []Page, words highlight.WordList) (Summary, error) {
	var sum Summary
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	total := len(pages)
	if total == 0 {
		return sum, nil
	}

	workers := ig.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	var bw *BatchWriter
	if ig.DB != nil {
		bw = NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)
	}

	var recorded int64
	resultCh := make(chan processedPage, workers*2)
	doneCh := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(ctx)

	// Consumer: restore input order, queue sightings, hand pages to OnPage.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]processedPage)
		next := 0
		var failed error
		for res := range resultCh {
			if failed != nil {
				continue
			}
			if res.err != nil {
				failed = res.err
				cancel()
				continue
			}
			buffer[res.index] = res
			for {
				item, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				if err := ig.deliver(item, bw, &sum, &recorded); err != nil {
					failed = err
					cancel()
					break
				}
				next++
				if ig.OnProgress != nil {
					ig.OnProgress(next, total)
				}
			}
		}
		doneCh <- failed
	}()

	var submitErr error
Loop:
	for i := range pages {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx, page := i, pages[i]
		job := func(ctx context.Context) error {
			res := ig.highlightPage(idx, page, words)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || err == ErrPoolClosed {
				break Loop
			}
			submitErr = fmt.Errorf("submit page %d: %w", idx, err)
			cancel()
			break Loop
		}
	}

	// Workers are gone once Close returns, so nothing sends on resultCh after this.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh

	if bw != nil {
		if err := bw.Close(); err != nil && consumerErr == nil {
			consumerErr = err
		}
	}
	sum.Recorded = atomic.LoadInt64(&recorded)

	switch {
	case submitErr != nil:
		return sum, submitErr
	case consumerErr != nil:
		return sum, consumerErr
	case sum.Pages < total:
		// Stopped early without a failure of our own.
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		return sum, ErrPoolClosed
	}
	if ig.Logger != nil {
		ig.Logger.Printf("ingest: highlighted %d pages, %d spans, %d sightings", sum.Pages, sum.Spans, sum.Recorded)
	}
	return sum, nil
}

// highlightPage runs the CPU-bound part of a page: selecting its root and one
// full highlight pass.
func (ig *Ingester) highlightPage(index int, page Page, words highlight.WordList) processedPage {
	if page.Doc == nil {
		return processedPage{index: index, page: page, err: fmt.Errorf("page %d (%s): no document", index, page.URL)}
	}
	root, err := highlight.SelectRoot(page.Doc, ig.Selector)
	if err != nil {
		return processedPage{index: index, page: page, err: err}
	}
	res := ig.Highlighter.Pass(root, words, highlight.ScopeFull)
	return processedPage{index: index, page: page, result: res}
}

func (ig *Ingester) deliver(item processedPage, bw *BatchWriter, sum *Summary, recorded *int64) error {
	sum.Pages++
	sum.Spans += item.result.Spans

	if bw != nil && item.page.URL != "" && len(item.result.Counts) > 0 {
		page := item.page
		counts := item.result.Counts
		err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			sourceID, err := db.CreateOrGetSource(tx, page.URL, page.Title, page.SiteName)
			if err != nil {
				return fmt.Errorf("persist source %s: %w", page.URL, err)
			}
			for wordID, n := range counts {
				if err := db.RecordSighting(tx, wordID, sourceID, n); err != nil {
					return fmt.Errorf("record sighting of %s: %w", wordID, err)
				}
				atomic.AddInt64(recorded, int64(n))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if ig.OnPage != nil {
		return ig.OnPage(PageResult{Index: item.index, Page: item.page, Result: item.result})
	}
	return nil
}
