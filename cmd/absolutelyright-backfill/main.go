// ABOUTME: Entry point for the transcript backfill tool
// ABOUTME: Scans historical transcripts, prints per-day counts, and optionally uploads them

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/2389/absolutelyright/internal/client"
	"github.com/2389/absolutelyright/internal/transcript"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	projects := flag.String("projects", "", "Transcript projects directory (default ~/.claude/projects)")
	jsonOut := flag.Bool("json", false, "Print results as JSON")
	uploadURL := flag.String("upload", "", "Server base URL to upload counts to")
	secret := flag.String("secret", "", "Shared secret for uploads")
	concurrency := flag.Int("concurrency", 0, "Parallel uploads")
	savePath := flag.String("save", "", "Write daily counts JSON to this path")
	watchMode := flag.Bool("watch", false, "Keep rescanning and upload days whose counts change")
	interval := flag.Duration("interval", 0, "Rescan interval in watch mode")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the file.
	if *projects != "" {
		cfg.Scan.Projects = *projects
	}
	if *uploadURL != "" {
		cfg.Upload.URL = *uploadURL
	}
	if *secret != "" {
		cfg.Upload.Secret = *secret
	}
	if *concurrency > 0 {
		cfg.Upload.Concurrency = *concurrency
	}
	if *savePath != "" {
		cfg.Output.SavePath = *savePath
	}
	if *watchMode {
		cfg.Watch.Enabled = true
	}
	if *interval > 0 {
		cfg.Watch.Interval = *interval
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Watch.Enabled {
		err = runWatch(ctx, cfg, os.Stdout)
	} else {
		err = run(ctx, cfg, *jsonOut, os.Stdout, os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newScanner builds the transcript scanner from the scan settings.
func newScanner(cfg *Config) (*transcript.Scanner, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return transcript.NewScanner(
		transcript.WithAbsolutelyPattern(cfg.Scan.AbsolutelyPattern),
		transcript.WithRightPattern(cfg.Scan.RightPattern),
		transcript.WithLogger(logger),
	)
}

// run performs one scan. With jsonOut, out carries only the JSON document
// and the upload report goes to diag.
func run(ctx context.Context, cfg *Config, jsonOut bool, out, diag io.Writer) error {
	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}

	if !jsonOut {
		bold := color.New(color.Bold)
		bold.Fprintln(out, "Absolutely Right Backfill")
		fmt.Fprintln(out, strings.Repeat("=", 50))
		fmt.Fprintf(out, "Projects directory: %s\n", cfg.Scan.Projects)
		fmt.Fprintf(out, "Pattern: %s\n", cfg.Scan.AbsolutelyPattern)
		if cfg.Upload.URL != "" {
			fmt.Fprintf(out, "Will upload to: %s\n", cfg.Upload.URL)
		}
		fmt.Fprintln(out, strings.Repeat("-", 50))
	}

	res, err := scanner.ScanDir(ctx, cfg.Scan.Projects)
	if err != nil {
		return fmt.Errorf("scanning transcripts: %w", err)
	}

	if jsonOut {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printHuman(out, res)
	}

	if cfg.Output.SavePath != "" && len(res.Days) > 0 {
		if err := saveDaily(cfg.Output.SavePath, res); err != nil {
			return err
		}
		if !jsonOut {
			fmt.Fprintf(out, "\nSaved daily counts to: %s\n", cfg.Output.SavePath)
		}
	}

	if cfg.Upload.URL == "" || len(res.Days) == 0 {
		return nil
	}

	c := client.New(cfg.Upload.URL, client.WithSecret(cfg.Upload.Secret))
	results := upload(ctx, c, res.Days, cfg.Upload.Concurrency)
	report := out
	if jsonOut {
		report = diag
	}
	printUploads(report, results, cfg.Upload.URL)

	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

// report is the -json output shape.
type report struct {
	TotalAbsolutely uint64                       `json:"total_absolutely"`
	TotalRight      uint64                       `json:"total_right"`
	DailyAbsolutely map[string]uint32            `json:"daily_absolutely"`
	DailyRight      map[string]uint32            `json:"daily_right"`
	ByDate          map[string]map[string]uint32 `json:"by_date"`
}

func buildReport(res *transcript.Result) report {
	r := report{
		TotalAbsolutely: res.TotalAbsolutely(),
		TotalRight:      res.TotalRight(),
		DailyAbsolutely: make(map[string]uint32),
		DailyRight:      make(map[string]uint32),
		ByDate:          make(map[string]map[string]uint32),
	}
	for _, d := range res.Days {
		if d.Count > 0 {
			r.DailyAbsolutely[d.Day] = d.Count
		}
		if d.RightCount > 0 {
			r.DailyRight[d.Day] = d.RightCount
		}
		if len(d.Projects) > 0 {
			r.ByDate[d.Day] = d.Projects
		}
	}
	return r
}

func printJSON(out io.Writer, res *transcript.Result) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(buildReport(res)); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

func printHuman(out io.Writer, res *transcript.Result) {
	if len(res.Days) == 0 {
		fmt.Fprintln(out, "No data found.")
		return
	}

	fmt.Fprintf(out, "Scanned %d transcript files\n", res.Files)
	fmt.Fprintln(out, "\nDaily counts:")
	fmt.Fprintln(out, strings.Repeat("-", 50))

	for _, d := range res.Days {
		line := fmt.Sprintf("%s: absolutely=%3d, right=%3d", d.Day, d.Count, d.RightCount)
		if len(d.Projects) > 1 {
			names := make([]string, 0, len(d.Projects))
			for p := range d.Projects {
				names = append(names, p)
			}
			sort.Strings(names)
			parts := make([]string, 0, len(names))
			for _, p := range names {
				parts = append(parts, fmt.Sprintf("%s: %d", p, d.Projects[p]))
			}
			line += " (" + strings.Join(parts, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "Total 'absolutely right': %d\n", res.TotalAbsolutely())
	fmt.Fprintf(out, "Total 'right': %d\n", res.TotalRight())
}

// saveDaily writes the local copy of the daily counts.
func saveDaily(path string, res *transcript.Result) error {
	r := buildReport(res)
	data, err := json.MarshalIndent(map[string]map[string]uint32{
		"absolutely_right": r.DailyAbsolutely,
		"right":            r.DailyRight,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding daily counts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating save directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing daily counts: %w", err)
	}
	return nil
}

type uploadResult struct {
	day transcript.Day
	err error
}

// dayUploader is the part of client.Client the uploader needs.
type dayUploader interface {
	Set(ctx context.Context, day string, count, rightCount uint32) error
}

// upload posts every day with at most limit requests in flight.
// Failures are recorded per day and never stop the remaining uploads.
func upload(ctx context.Context, c dayUploader, days []transcript.Day, limit int) []uploadResult {
	results := make([]uploadResult, len(days))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, d := range days {
		results[i].day = d
		g.Go(func() error {
			results[i].err = c.Set(ctx, d.Day, d.Count, d.RightCount)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func countFailed(results []uploadResult) int {
	n := 0
	for _, r := range results {
		if r.err != nil {
			n++
		}
	}
	return n
}

func printUploads(out io.Writer, results []uploadResult, apiURL string) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Fprintln(out, "\n"+strings.Repeat("-", 50))
	fmt.Fprintln(out, "Uploading to API...")

	for _, r := range results {
		fmt.Fprintf(out, "  %s: absolutely=%d, right=%d ", r.day.Day, r.day.Count, r.day.RightCount)
		if r.err != nil {
			red.Fprintf(out, "✗ %v\n", r.err)
		} else {
			green.Fprintln(out, "✓")
		}
	}

	failed := countFailed(results)
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "Upload complete: %d successful, %d failed\n", len(results)-failed, failed)
	if failed < len(results) {
		fmt.Fprintf(out, "View at: %s\n", apiURL)
	}
}
