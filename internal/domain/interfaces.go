package domain

import "context"

// Source is the abstracted remote wallpaper capability. A Search call
// re-queries; results are finite and not restartable.
type Source interface {
	// Name returns the source identifier, e.g. "wallhaven".
	Name() string

	// Search returns ranked candidate descriptors for the criteria.
	Search(ctx context.Context, criteria SearchCriteria) ([]Candidate, error)

	// Fetch downloads the candidate's raw bytes.
	Fetch(ctx context.Context, candidate Candidate) ([]byte, error)
}

// Applier is the OS-specific mechanism that paints a monitor's
// background. Injected so the scheduler is testable with a fake.
type Applier interface {
	Apply(ctx context.Context, monitor Monitor, path string) error
}

// CommandPhase distinguishes pre from post custom commands.
type CommandPhase string

const (
	PhasePre  CommandPhase = "pre"
	PhasePost CommandPhase = "post"
)

// CommandResult captures one custom command invocation.
type CommandResult struct {
	ExitCode int
	Output   string // combined stdout+stderr
}

// CommandRunner executes user-configured commands around wallpaper
// transitions, bounded by a timeout.
type CommandRunner interface {
	Run(ctx context.Context, phase CommandPhase, commandLine string, env map[string]string) (CommandResult, error)
}
