// Package watch re-highlights HTML files when they change on disk or when the
// word list changes.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/japaniel/lexilight/pkg/ingest"
	"github.com/japaniel/lexilight/pkg/live"
)

// outputMarker tags generated files so they are never picked up as input.
const outputMarker = ".highlighted"

// Options configures a Watcher.
type Options struct {
	// Window is the debounce quiet period. Zero means live.DefaultWindow.
	Window     time.Duration
	Selector   string
	Format     ingest.Format
	ReaderMode bool
	// OutDir receives the highlighted copies. Empty writes next to each source.
	OutDir string
	Logger *log.Logger
	// OnWrite is called after each output file is written.
	OnWrite func(src, dst string, res highlight.Result)
}

// Watcher keeps highlighted copies of the files matching its patterns.
type Watcher struct {
	patterns []string
	hl       *highlight.Highlighter
	opts     Options
	deb      *live.Debouncer

	mu      sync.Mutex
	words   highlight.WordList
	pending map[string]struct{}
}

// New creates a Watcher over doublestar patterns such as "notes/**/*.html".
func New(patterns []string, hl *highlight.Highlighter, opts Options) (*Watcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("watch: no patterns")
	}
	for _, p := range patterns {
		if !doublestar.ValidatePathPattern(p) {
			return nil, fmt.Errorf("watch: invalid pattern %q", p)
		}
	}
	if hl == nil {
		hl = highlight.New()
	}
	if opts.Format == "" {
		opts.Format = ingest.FormatHTML
	}
	w := &Watcher{
		patterns: patterns,
		hl:       hl,
		opts:     opts,
		pending:  make(map[string]struct{}),
	}
	w.deb = live.NewDebouncer(opts.Window, w.process)
	return w, nil
}

// Expand returns the files matching patterns, sorted and without generated outputs.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] || isOutput(m) {
				continue
			}
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// OutputPath is where the highlighted copy of src is written.
func OutputPath(outDir, src string, f ingest.Format) string {
	ext := ".html"
	if f == ingest.FormatMarkdown {
		ext = ".md"
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, base+outputMarker+ext)
}

func isOutput(path string) bool {
	base := filepath.Base(path)
	return strings.Contains(base, outputMarker+".")
}

func (w *Watcher) matches(path string) bool {
	if isOutput(path) {
		return false
	}
	for _, p := range w.patterns {
		if ok, _ := doublestar.PathMatch(filepath.Clean(p), path); ok {
			return true
		}
	}
	return false
}

// Deliver replaces the word list and schedules every matching file. An empty
// list is ignored.
func (w *Watcher) Deliver(words highlight.WordList) {
	if len(words) == 0 {
		return
	}
	files, err := Expand(w.patterns)
	if err != nil {
		w.logf("watch: %v", err)
	}
	w.mu.Lock()
	w.words = words
	for _, f := range files {
		w.pending[f] = struct{}{}
	}
	w.mu.Unlock()
	w.deb.Trigger()
}

// Changed schedules one file.
func (w *Watcher) Changed(path string) {
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()
	w.deb.Trigger()
}

// Flush processes scheduled files now.
func (w *Watcher) Flush() bool { return w.deb.Flush() }

// Run watches the pattern roots until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	defer w.deb.Stop()

	for _, p := range w.patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
		if err := w.addRecursive(fsw, filepath.FromSlash(base)); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logf("watch: %v", err)
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(fsw, ev.Name); err != nil {
				w.logf("watch: %v", err)
			}
			return
		}
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if w.matches(ev.Name) {
		w.Changed(ev.Name)
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logf("watch: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) process() {
	w.mu.Lock()
	words := w.words
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	// Files changed before the first word list wait for it.
	if len(words) == 0 {
		w.mu.Lock()
		for _, p := range paths {
			w.pending[p] = struct{}{}
		}
		w.mu.Unlock()
		return
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := w.highlightFile(p, words); err != nil {
			w.logf("watch: %s: %v", p, err)
		}
	}
}

func (w *Watcher) highlightFile(src string, words highlight.WordList) error {
	body, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	page, err := ingest.LoadPage(body, "file://"+filepath.ToSlash(src), w.opts.ReaderMode)
	if err != nil {
		return err
	}
	selector := w.opts.Selector
	if w.opts.ReaderMode {
		selector = ""
	}
	root, err := highlight.SelectRoot(page.Doc, selector)
	if err != nil {
		return err
	}
	res := w.hl.Pass(root, words, highlight.ScopeFull)

	dst := OutputPath(w.opts.OutDir, src, w.opts.Format)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := ingest.Render(f, page, w.opts.Format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if w.opts.OnWrite != nil {
		w.opts.OnWrite(src, dst, res)
	}
	return nil
}

func (w *Watcher) logf(format string, args ...any) {
	if w.opts.Logger != nil {
		w.opts.Logger.Printf(format, args...)
	}
}
