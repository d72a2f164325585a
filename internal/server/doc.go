// Package server implements the HTTP side of absolutelyright.
//
// # Endpoints
//
//	GET  /api/today     {"count": n, "right_count": m} for the current UTC day
//	GET  /api/history   [{"day": "...", "count": n, "right_count": m}, ...] ascending by day
//	POST /api/set       {"day", "count", "right_count"?, "secret"?} -> "ok"
//	GET  /health        liveness
//	GET  /health/ready  store ping
//	GET  /metrics       Prometheus scrape endpoint (path configurable)
//	GET  /*             static frontend from server.static_dir
//
// # Authorization
//
// When auth.secret (or ABSOLUTELYRIGHT_SECRET) is set, POST /api/set must
// carry a matching "secret" field or it is rejected with 401 and nothing is
// written. With no secret configured the endpoint is open.
//
// # Middleware
//
// Requests pass through, outermost first: request id, Prometheus metrics,
// the pageview logger, then the router. None of them short-circuit.
//
// # Errors
//
// Storage failures are logged with the request id and answered with a plain
// 500; they never take the process down. Pageview log failures are ignored.
package server
