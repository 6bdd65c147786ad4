package tools

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/config"
)

// Sandbox bundles the project filesystem with the terminals used by the
// build stage. Only the docker CLI may be executed.
type Sandbox struct {
	FS *Filesystem
	// Terminal runs short inspection commands (images, ps, inspect, logs).
	Terminal *Terminal
	// Builder runs docker build with the longer build timeout.
	Builder *Terminal
}

var dockerOnly = []string{"docker"}

var deniedCommands = []string{"rm", "sudo", "su", "dd", "mkfs", "shutdown", "reboot"}

// NewSandbox builds the filesystem and docker terminals for root.
func NewSandbox(root string, build config.BuildConfig, logger *zap.Logger) (*Sandbox, error) {
	fsTool, err := NewFilesystem(root, true)
	if err != nil {
		return nil, fmt.Errorf("build filesystem tool: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("terminal")

	newTerminal := func(timeout time.Duration) *Terminal {
		return &Terminal{
			WorkingDir:     fsTool.Root(),
			Allowed:        dockerOnly,
			Denied:         dedupeStrings(deniedCommands),
			Timeout:        timeout,
			AllowExecution: build.Enabled,
			Logger:         logger,
		}
	}

	return &Sandbox{
		FS:       fsTool,
		Terminal: newTerminal(build.CommandTimeout),
		Builder:  newTerminal(build.BuildTimeout),
	}, nil
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
