// Package config handles configuration loading for the absolutelyright server.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Every field has a default, so the server also runs with no file
// at all.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from ABSOLUTELYRIGHT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/absolutelyright/config.yaml
//  3. ~/.config/absolutelyright/config.yaml
//
// # Environment Variable Expansion
//
//	auth:
//	  secret: "${ABSOLUTELYRIGHT_SECRET}"
//
// # Environment Overrides
//
// Applied after the file is parsed, when non-empty:
//
//	ABSOLUTELYRIGHT_SECRET      auth.secret
//	ABSOLUTELYRIGHT_DB_PATH     database.path
//	ABSOLUTELYRIGHT_LOG_PATH    pageview.log_path
//	ABSOLUTELYRIGHT_HTTP_ADDR   server.http_addr
//	ABSOLUTELYRIGHT_STATIC_DIR  server.static_dir
//
// ABSOLUTELYRIGHT_DATA_DIR changes the directory the default database and
// pageview log paths are placed in (e.g. a mounted volume such as /app/data).
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:3003"
//	  static_dir: "frontend"
//	database:
//	  path: "counts.db"
//	  driver: "sqlite"          # or "sqlite3" (cgo)
//	pageview:
//	  log_path: "pageviews.log"
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "text"            # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
