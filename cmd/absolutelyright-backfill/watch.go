// ABOUTME: Watch mode for the backfill tool
// ABOUTME: Rescans transcripts on a ticker and uploads only days whose counts changed

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/2389/absolutelyright/internal/client"
	"github.com/2389/absolutelyright/internal/transcript"
)

type dayCounts struct {
	count, right uint32
}

// watcher remembers the last counts it delivered per day. Every pass is a
// full rescan, so a day's totals are recomputed rather than incremented and
// a re-read file never counts twice.
type watcher struct {
	scanner  *transcript.Scanner
	uploader dayUploader // nil when no upload URL is configured
	root     string
	limit    int
	savePath string
	out      io.Writer

	mu   sync.Mutex
	last map[string]dayCounts
}

// snapshot copies the delivered counts.
func (w *watcher) snapshot() map[string]dayCounts {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]dayCounts, len(w.last))
	for k, v := range w.last {
		out[k] = v
	}
	return out
}

// pass rescans once and delivers the changed days.
// A day whose upload failed stays pending and is retried next pass.
func (w *watcher) pass(ctx context.Context) ([]transcript.Day, error) {
	res, err := w.scanner.ScanDir(ctx, w.root)
	if err != nil {
		return nil, fmt.Errorf("scanning transcripts: %w", err)
	}

	last := w.snapshot()
	var changed []transcript.Day
	for _, d := range res.Days {
		if prev, ok := last[d.Day]; ok && prev == (dayCounts{d.Count, d.RightCount}) {
			continue
		}
		changed = append(changed, d)
	}
	if len(changed) == 0 {
		return nil, nil
	}

	if w.savePath != "" {
		if err := saveDaily(w.savePath, res); err != nil {
			return nil, err
		}
	}

	stamp := color.HiBlackString("[" + time.Now().Format("15:04:05") + "]")
	delivered := changed
	if w.uploader != nil {
		delivered = delivered[:0:0]
		for _, r := range upload(ctx, w.uploader, changed, w.limit) {
			if r.err != nil {
				fmt.Fprintf(w.out, "%s %s upload failed: %v\n", stamp, r.day.Day, r.err)
				continue
			}
			delivered = append(delivered, r.day)
		}
	}

	w.mu.Lock()
	for _, d := range delivered {
		w.last[d.Day] = dayCounts{d.Count, d.RightCount}
	}
	w.mu.Unlock()

	for _, d := range delivered {
		fmt.Fprintf(w.out, "%s %s: absolutely=%d, right=%d\n", stamp, d.Day, d.Count, d.RightCount)
	}
	return delivered, nil
}

// loop runs pass immediately and then on every tick until ctx is done.
func (w *watcher) loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.pass(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(w.out, "scan failed: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runWatch(ctx context.Context, cfg *Config, out io.Writer) error {
	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}

	w := &watcher{
		scanner:  scanner,
		root:     cfg.Scan.Projects,
		limit:    cfg.Upload.Concurrency,
		savePath: cfg.Output.SavePath,
		out:      out,
		last:     make(map[string]dayCounts),
	}
	if cfg.Upload.URL != "" {
		w.uploader = client.New(cfg.Upload.URL, client.WithSecret(cfg.Upload.Secret))
	}

	color.New(color.Bold).Fprintln(out, "Absolutely Right Watcher")
	fmt.Fprintf(out, "Watching: %s every %s\n", cfg.Scan.Projects, cfg.Watch.Interval)
	if cfg.Upload.URL != "" {
		fmt.Fprintf(out, "Uploading to: %s\n", cfg.Upload.URL)
	}

	err = w.loop(ctx, cfg.Watch.Interval)
	fmt.Fprintln(out, "Stopping watcher...")
	return err
}
