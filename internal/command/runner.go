// Package command executes user-configured shell commands around
// wallpaper transitions. Every invocation is bounded by a timeout; an
// overrun kills that command only and never stalls the slideshow.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/wallter/wallter/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Runner implements domain.CommandRunner via the platform shell.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner. timeout <= 0 falls back to the default.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{timeout: timeout, logger: logger}
}

// Run executes commandLine through the shell with env merged into the
// process environment. Captured output is returned even on failure.
func (r *Runner) Run(ctx context.Context, phase domain.CommandPhase, commandLine string, env map[string]string) (domain.CommandResult, error) {
	if strings.TrimSpace(commandLine) == "" {
		return domain.CommandResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := shellCommand(ctx, commandLine)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	started := time.Now()
	output, err := cmd.CombinedOutput()
	result := domain.CommandResult{ExitCode: -1, Output: string(output)}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		r.logger.Warn("custom command timed out",
			"phase", phase, "command", commandLine, "timeout", r.timeout)
		return result, fmt.Errorf("%w: %s", domain.ErrCommandTimeout, commandLine)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.Warn("custom command failed",
				"phase", phase, "command", commandLine, "exit", result.ExitCode)
			return result, fmt.Errorf("command %q exited %d", commandLine, result.ExitCode)
		}
		return result, fmt.Errorf("command %q: %w", commandLine, err)
	}

	r.logger.Debug("custom command completed",
		"phase", phase, "command", commandLine, "took", time.Since(started))
	return result, nil
}

// shellCommand builds the platform shell invocation.
func shellCommand(ctx context.Context, commandLine string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/c", commandLine)
	}
	return exec.CommandContext(ctx, "sh", "-c", commandLine)
}
