// ABOUTME: Scans assistant transcript JSONL files and tallies phrase matches per day
// ABOUTME: Produces per-day "absolutely right" and "right" counts with a per-project breakdown

// Package transcript counts how often an assistant told the user they were
// right, by scanning JSONL conversation logs laid out as
// <projects>/<project>/*.jsonl.
//
// Resumed sessions repeat earlier entries in a new file. Entries carrying a
// uuid (or requestId) are counted once per scan; entries without one are
// always counted.
package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/absolutelyright/internal/dedupe"
)

// Default patterns, matched case-insensitively.
const (
	DefaultAbsolutelyPattern = `You(?:'re| are) absolutely right`
	DefaultRightPattern      = `You(?:'re| are) right`
)

// maxLineBytes bounds one JSONL line; tool outputs can make lines very long.
const maxLineBytes = 32 << 20

// Day is the tally for one calendar day, taken from the entry timestamp.
type Day struct {
	Day        string
	Count      uint32
	RightCount uint32
	// Projects breaks Count down by project display name.
	Projects map[string]uint32
}

// Result is the outcome of a scan, with days in ascending order.
type Result struct {
	Days  []Day
	Files int
}

// TotalAbsolutely sums Count over all days.
func (r *Result) TotalAbsolutely() uint64 {
	var n uint64
	for _, d := range r.Days {
		n += uint64(d.Count)
	}
	return n
}

// TotalRight sums RightCount over all days.
func (r *Result) TotalRight() uint64 {
	var n uint64
	for _, d := range r.Days {
		n += uint64(d.RightCount)
	}
	return n
}

// Scanner matches transcript text against the two phrase patterns.
type Scanner struct {
	absolutely  *regexp.Regexp
	right       *regexp.Regexp
	concurrency int
	logger      *slog.Logger
}

type scannerOptions struct {
	absolutely  string
	right       string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*scannerOptions)

// WithAbsolutelyPattern overrides the "absolutely right" pattern.
func WithAbsolutelyPattern(p string) Option {
	return func(o *scannerOptions) {
		if p != "" {
			o.absolutely = p
		}
	}
}

// WithRightPattern overrides the "right" pattern.
func WithRightPattern(p string) Option {
	return func(o *scannerOptions) {
		if p != "" {
			o.right = p
		}
	}
}

// WithConcurrency sets how many project directories are scanned at once.
func WithConcurrency(n int) Option {
	return func(o *scannerOptions) { o.concurrency = n }
}

// WithLogger sets the logger for unreadable files.
func WithLogger(logger *slog.Logger) Option {
	return func(o *scannerOptions) { o.logger = logger }
}

// NewScanner compiles the configured patterns (case-insensitive).
func NewScanner(opts ...Option) (*Scanner, error) {
	o := scannerOptions{
		absolutely:  DefaultAbsolutelyPattern,
		right:       DefaultRightPattern,
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	absolutely, err := regexp.Compile("(?i)" + o.absolutely)
	if err != nil {
		return nil, fmt.Errorf("compiling absolutely pattern: %w", err)
	}
	right, err := regexp.Compile("(?i)" + o.right)
	if err != nil {
		return nil, fmt.Errorf("compiling right pattern: %w", err)
	}

	return &Scanner{
		absolutely:  absolutely,
		right:       right,
		concurrency: o.concurrency,
		logger:      o.logger.With("component", "transcript"),
	}, nil
}

// ProjectName turns a project directory name such as
// "-Users-alice-code-widgets" into a display name ("code-widgets").
func ProjectName(dir string) string {
	for _, prefix := range []string{"-Users-", "-home-", "-var-"} {
		if strings.HasPrefix(dir, prefix) {
			parts := strings.SplitN(dir, "-", 4)
			if len(parts) > 3 {
				return parts[3]
			}
			return dir
		}
	}
	return dir
}

// tally accumulates counts; safe for concurrent use.
type tally struct {
	mu    sync.Mutex
	days  map[string]*Day
	files int
}

func newTally() *tally {
	return &tally{days: make(map[string]*Day)}
}

func (t *tally) day(key string) *Day {
	d, ok := t.days[key]
	if !ok {
		d = &Day{Day: key, Projects: make(map[string]uint32)}
		t.days[key] = d
	}
	return d
}

func (t *tally) merge(other *tally) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files += other.files
	for key, od := range other.days {
		d := t.day(key)
		d.Count += od.Count
		d.RightCount += od.RightCount
		for p, n := range od.Projects {
			d.Projects[p] += n
		}
	}
}

func (t *tally) result() *Result {
	res := &Result{Days: make([]Day, 0, len(t.days)), Files: t.files}
	for _, d := range t.days {
		res.Days = append(res.Days, *d)
	}
	sort.Slice(res.Days, func(i, j int) bool { return res.Days[i].Day < res.Days[j].Day })
	return res
}

// ScanDir scans every <root>/<project>/*.jsonl file, skipping hidden
// project directories. Unreadable files are logged and skipped.
func (s *Scanner) ScanDir(ctx context.Context, root string) (*Result, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading projects directory: %w", err)
	}

	total := newTally()
	seen := dedupe.New(dedupe.DefaultMaxSize)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		project := ProjectName(entry.Name())

		g.Go(func() error {
			local, err := s.scanProject(ctx, dir, project, seen)
			if err != nil {
				return err
			}
			total.merge(local)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return total.result(), nil
}

func (s *Scanner) scanProject(ctx context.Context, dir, project string, seen *dedupe.Cache) (*tally, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("listing transcripts in %s: %w", dir, err)
	}

	t := newTally()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			s.logger.Warn("skipping unreadable transcript", "path", path, "error", err)
			continue
		}
		err = s.scan(f, project, t, seen)
		f.Close()
		if err != nil {
			s.logger.Warn("error reading transcript", "path", path, "error", err)
			continue
		}
		t.files++
	}
	return t, nil
}

// Scan tallies a single JSONL stream attributed to project.
func (s *Scanner) Scan(r io.Reader, project string) (*Result, error) {
	t := newTally()
	if err := s.scan(r, project, t, dedupe.New(0)); err != nil {
		return nil, err
	}
	t.files = 1
	return t.result(), nil
}

type entry struct {
	Type      string `json:"type"`
	UUID      string `json:"uuid"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
	Message   struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (e *entry) id() string {
	if e.UUID != "" {
		return e.UUID
	}
	return e.RequestID
}

func (s *Scanner) scan(r io.Reader, project string, t *tally, seen *dedupe.Cache) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		var e entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if e.Type != "assistant" || e.Timestamp == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
		if err != nil {
			continue
		}
		day := ts.Format("2006-01-02")

		if id := e.id(); id != "" && seen.CheckAndMark(id) {
			continue
		}

		// Content may be a plain string on some entries; only item lists count.
		var items []json.RawMessage
		if err := json.Unmarshal(e.Message.Content, &items); err != nil {
			continue
		}
		for _, raw := range items {
			var item contentItem
			if err := json.Unmarshal(raw, &item); err != nil || item.Type != "text" {
				continue
			}
			s.count(t, day, project, item.Text)
		}
	}
	return sc.Err()
}

func (s *Scanner) count(t *tally, day, project, text string) {
	abs := s.absolutely.MatchString(text)
	right := s.right.MatchString(text)
	if !abs && !right {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.day(day)
	if abs {
		d.Count++
		d.Projects[project]++
	}
	if right {
		d.RightCount++
	}
}
