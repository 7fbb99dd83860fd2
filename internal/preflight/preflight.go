package preflight

import (
	"context"

	"shotnamer/internal/config"
	"shotnamer/internal/services/ollama"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory failures are reported but do not block watching.
	Advisory bool
}

// ModelLister is the part of the captioning client the checks need.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ollama.Model, error)
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, lister ModelLister) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Watch directory", cfg.Watch.Dir),
	}

	models, service := CheckService(ctx, lister, cfg.Ollama.BaseURL)
	results = append(results, service)
	if service.Passed {
		results = append(results, CheckModel(models, cfg.Ollama.Model))
	}
	return results
}

// Failed reports whether any non-advisory check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Advisory {
			return true
		}
	}
	return false
}
