package preflight

import (
	"context"

	"clipquiz/internal/config"
)

// MinWorkspaceFree is the free space a workspace filesystem must offer
// before conversions are accepted. One long video's audio plus its 16 kHz
// WAV fits comfortably.
const MinWorkspaceFree = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options toggles the slower checks.
type Options struct {
	// SkipLLM skips the generation service round trip.
	SkipLLM bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))
	results = append(results, CheckFreeSpace("Workspace free space", cfg.Paths.WorkspaceDir, MinWorkspaceFree))
	results = append(results, CheckJournal(cfg))

	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Command
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: detail,
		})
	}

	if !opts.SkipLLM {
		results = append(results, CheckLLM(ctx, "Generation LLM", cfg.LLM))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
