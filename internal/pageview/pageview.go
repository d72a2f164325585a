// ABOUTME: Pageview logging middleware that appends root-page GETs to a text file
// ABOUTME: Logging is best effort; the request is always forwarded unchanged

// Package pageview records visits to the frontend's landing page in an
// append-only plain-text log, one line per visit:
//
//	2024-01-02 15:04:05 - Pageview: /
//
// Only GET requests for "/" and "/index.html" are recorded. The log file is
// opened in append mode for each write and closed afterwards, so concurrent
// requests rely on the operating system's append atomicity for small writes.
package pageview

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// TimestampLayout is the UTC timestamp layout at the start of each log line.
const TimestampLayout = "2006-01-02 15:04:05"

// Observer is notified after a pageview has been written to the log.
type Observer interface {
	ObservePageview(path string)
}

// Logger appends pageview lines to a file.
type Logger struct {
	path     string
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithLogger sets the structured logger used to report write failures at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// WithObserver registers an observer for successfully logged pageviews.
func WithObserver(o Observer) Option {
	return func(l *Logger) { l.observer = o }
}

// New creates a Logger writing to path.
func New(path string, opts ...Option) *Logger {
	l := &Logger{
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "pageview")
	return l
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// IsPageview reports whether r is a visit to the landing page.
func IsPageview(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return r.URL.Path == "/" || r.URL.Path == "/index.html"
}

// Record appends one pageview line for path.
func (l *Logger) Record(path string) error {
	line := fmt.Sprintf("%s - Pageview: %s\n", l.now().UTC().Format(TimestampLayout), path)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening pageview log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing pageview log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing pageview log: %w", err)
	}

	if l.observer != nil {
		l.observer.ObservePageview(path)
	}
	return nil
}

// Middleware logs landing page visits and always calls next.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPageview(r) {
			if err := l.Record(r.URL.Path); err != nil {
				l.logger.Debug("pageview not recorded", "path", r.URL.Path, "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}
