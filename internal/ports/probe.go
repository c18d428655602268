package ports

import (
	"context"
	"fmt"
	"strconv"

	"worktreectl/internal/executor"
)

// Probe reports whether a TCP port has a listener. A probe that cannot run
// reports false.
type Probe interface {
	Name() string
	InUse(ctx context.Context, port int) bool
}

// SocketStatsProbe asks `ss` for listening sockets bound to the port
type SocketStatsProbe struct {
	runner executor.Runner
}

// NewSocketStatsProbe creates an ss-backed probe
func NewSocketStatsProbe(runner executor.Runner) *SocketStatsProbe {
	return &SocketStatsProbe{runner: runner}
}

func (p *SocketStatsProbe) Name() string { return "ss" }

func (p *SocketStatsProbe) InUse(ctx context.Context, port int) bool {
	out, ok := p.runner.RunSafe(ctx, "ss", "-Htln", fmt.Sprintf("sport = :%d", port))
	return ok && out != ""
}

// OpenFilesProbe asks `lsof` for processes listening on the port
type OpenFilesProbe struct {
	runner executor.Runner
}

// NewOpenFilesProbe creates an lsof-backed probe
func NewOpenFilesProbe(runner executor.Runner) *OpenFilesProbe {
	return &OpenFilesProbe{runner: runner}
}

func (p *OpenFilesProbe) Name() string { return "lsof" }

func (p *OpenFilesProbe) InUse(ctx context.Context, port int) bool {
	// lsof exits 1 when nothing matches, which RunSafe reports as not ok
	out, ok := p.runner.RunSafe(ctx, "lsof", "-nP", "-iTCP:"+strconv.Itoa(port), "-sTCP:LISTEN", "-t")
	return ok && out != ""
}

// DefaultProbes returns the ss and lsof probes
func DefaultProbes(runner executor.Runner) []Probe {
	return []Probe{NewSocketStatsProbe(runner), NewOpenFilesProbe(runner)}
}
