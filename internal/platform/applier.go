// Package platform holds the OS-specific apply-wallpaper capability.
// The scheduler only ever sees the domain.Applier interface; this
// package provides a command-driven implementation with per-platform
// defaults and a user override.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/wallter/wallter/internal/domain"
)

// setterCandidates lists known wallpaper setters per platform, tried
// in order until one's binary is found on PATH. Templates expand
// {path} to the image file and {monitor} to the monitor name.
var setterCandidates = map[string][]string{
	"linux": {
		`swww img "{path}"`,
		`swaybg -o {monitor} -i "{path}" -m fill`,
		`feh --bg-fill "{path}"`,
		`xwallpaper --zoom "{path}"`,
	},
	"darwin": {
		`osascript -e 'tell application "System Events" to set picture of every desktop to "{path}"'`,
	},
}

// CommandApplier applies wallpapers by running an external setter.
type CommandApplier struct {
	template string // user override; empty = auto-detect per platform
	logger   *slog.Logger

	// lookPath is swappable for tests.
	lookPath func(string) (string, error)
}

// NewCommandApplier creates an applier. template may be empty, in
// which case a known setter is detected at apply time.
func NewCommandApplier(template string, logger *slog.Logger) *CommandApplier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandApplier{
		template: template,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// Apply paints the monitor's background with the file at path.
// Failures are per-monitor; callers continue with the next monitor.
func (a *CommandApplier) Apply(ctx context.Context, monitor domain.Monitor, path string) error {
	template := a.template
	if template == "" {
		detected, err := a.detect()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrApplyFailed, err)
		}
		template = detected
	}

	commandLine := expand(template, monitor, path)
	a.logger.Debug("applying wallpaper", "monitor", monitor.Name, "command", commandLine)

	cmd := exec.CommandContext(ctx, "sh", "-c", commandLine)
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", commandLine)
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		a.logger.Error("wallpaper setter failed",
			"monitor", monitor.Name, "error", err, "output", strings.TrimSpace(string(output)))
		return fmt.Errorf("%w: monitor %s: %v", domain.ErrApplyFailed, monitor.Name, err)
	}

	a.logger.Info("wallpaper applied", "monitor", monitor.Name, "path", path)
	return nil
}

// detect picks the first candidate setter whose binary exists.
func (a *CommandApplier) detect() (string, error) {
	candidates, ok := setterCandidates[runtime.GOOS]
	if !ok {
		return "", fmt.Errorf("no wallpaper setter known for %s; set slideshow.apply_command", runtime.GOOS)
	}
	for _, candidate := range candidates {
		binary := strings.Fields(candidate)[0]
		if _, err := a.lookPath(binary); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no wallpaper setter found on PATH; set slideshow.apply_command")
}

// expand substitutes the template placeholders. Templates carry their
// own quoting; the path is inserted verbatim.
func expand(template string, monitor domain.Monitor, path string) string {
	replacer := strings.NewReplacer(
		"{path}", path,
		"{monitor}", monitor.Name,
		"{monitor_id}", strconv.Itoa(monitor.ID),
	)
	return replacer.Replace(template)
}
