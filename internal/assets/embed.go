// Package assets serves the frontend: files from the configured static
// directory when it exists, otherwise the built-in page embedded via go:embed.
// Hashed asset filenames get immutable cache headers; everything else is no-cache.
package assets

import (
	"embed"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// hashPattern detects bundler content hashes in filenames (e.g. ".CU4W1PlC.").
var hashPattern = regexp.MustCompile(`\.[a-zA-Z0-9_-]{8,}\.`)

func init() {
	// Errors are ignored: these only fail if the extension format is invalid.
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".map", "application/json")
}

// containsHash reports whether the given path contains a content hash.
func containsHash(p string) bool {
	return hashPattern.MatchString(p)
}

// mimeFromExt returns the MIME type for a file extension.
// Falls back to the standard library's MIME database, then to
// "application/octet-stream".
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".woff2":
		return "font/woff2"
	case ".svg":
		return "image/svg+xml"
	case ".map":
		return "application/json"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// Embedded returns the built-in frontend.
func Embedded() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("assets: failed to create sub filesystem: " + err.Error())
	}
	return sub
}

// Handler serves dir if it is an existing directory, else the built-in frontend.
func Handler(dir string, logger *slog.Logger) http.Handler {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			logger.Info("serving static files", "dir", dir)
			return FileServer(http.Dir(dir))
		}
		logger.Warn("static dir not found, serving built-in frontend", "dir", dir)
	}
	return FileServer(http.FS(Embedded()))
}

// FileServer wraps http.FileServer with content-type and cache headers.
// Path resolution, directory index fallback and 404s are http.FileServer's;
// an explicit .../index.html is served directly instead of redirected.
func FileServer(root http.FileSystem) http.Handler {
	fileServer := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := strings.ToLower(path.Ext(r.URL.Path))
		if ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}

		if containsHash(r.URL.Path) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}

		// http.FileServer redirects /index.html to ./; serve it in place.
		if strings.HasSuffix(r.URL.Path, "/index.html") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimSuffix(r.URL.Path, "index.html")
			r = r2
		}

		fileServer.ServeHTTP(w, r)
	})
}
