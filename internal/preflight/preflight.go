package preflight

import (
	"context"

	"qbridge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// RunAll executes every preflight check that applies to cfg. The API check
// runs only when the HTTP API is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Runtime directory", cfg.Paths.RuntimeDir),
		CheckBusSocket(cfg),
		CheckObjectManager(ctx, cfg),
	}
	if cfg.API.Bind != "" {
		results = append(results, CheckAPI(ctx, cfg.API.Bind))
	}
	return results
}
