package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// ProbeVersion runs the requirement's version command and returns the first
// non-empty line of its output.
func ProbeVersion(ctx context.Context, req Requirement) (string, error) {
	cmd := strings.TrimSpace(req.Command)
	if cmd == "" || len(req.VersionArgs) == 0 {
		return "", fmt.Errorf("%s: no version command", req.Name)
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var out bytes.Buffer
	c := exec.CommandContext(probeCtx, cmd, req.VersionArgs...)
	c.Stdout = &out
	c.Stderr = &out
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w", cmd, strings.Join(req.VersionArgs, " "), err)
	}
	for line := range strings.SplitSeq(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", nil
}
