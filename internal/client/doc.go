// Package client is a small Go client for the absolutelyright HTTP API.
//
// It is used by the CLI's "today" subcommand and by the backfill tool to
// upload counts:
//
//	c := client.New("http://localhost:3003", client.WithSecret(os.Getenv("ABSOLUTELYRIGHT_SECRET")))
//	if err := c.Set(ctx, "2024-01-15", 12, 30); err != nil {
//		if errors.Is(err, client.ErrUnauthorized) {
//			// wrong or missing secret
//		}
//	}
package client
