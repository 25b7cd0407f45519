// Package pandoc renders Markdown study material to PDF, falling back through
// an ordered list of LaTeX engines before giving up.
package pandoc

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command is the default pandoc binary name resolved via PATH.
const Command = "pandoc"

// Config captures the rendering settings.
type Config struct {
	// Engines is the ordered PDF engine preference. Each engine is tried
	// with full formatting before the final minimal attempt.
	Engines []string
	// HeaderFile is an optional LaTeX header included in full-formatting
	// attempts.
	HeaderFile string
}

// State tracks where the fallback sequence currently stands.
type State int

const (
	StateNotTried State = iota
	StateTrying
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateNotTried:
		return "not-tried"
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt records one engine invocation in the fallback sequence.
type Attempt struct {
	Engine  string
	Minimal bool
	Err     error
}

// Result describes the outcome of a render, including every attempt made.
type Result struct {
	State    State
	Engine   string
	Minimal  bool
	Attempts []Attempt
}

// Service invokes pandoc with engine fallback.
type Service struct {
	cfg           Config
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a pandoc service with the given configuration.
func NewService(cfg Config, binary string) *Service {
	if binary == "" {
		binary = Command
	}
	return &Service{cfg: cfg, binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Render converts markdownPath to a PDF at outputPath. Each configured engine
// is tried with full formatting, then the last engine is retried with minimal
// formatting. The first success wins; the returned Result lists every attempt
// so callers can report which engine produced the document.
func (s *Service) Render(ctx context.Context, markdownPath, outputPath string) (Result, error) {
	result := Result{State: StateNotTried}
	if markdownPath == "" {
		return result, fmt.Errorf("render: markdown path required")
	}
	if outputPath == "" {
		return result, fmt.Errorf("render: output path required")
	}

	engines := s.cfg.Engines
	if len(engines) == 0 {
		engines = []string{"xelatex", "pdflatex"}
	}

	attempts := make([]Attempt, 0, len(engines)+1)
	for _, engine := range engines {
		attempts = append(attempts, Attempt{Engine: engine})
	}
	attempts = append(attempts, Attempt{Engine: engines[len(engines)-1], Minimal: true})

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.State = StateTrying
		attempt := &attempts[i]

		args := s.buildArgs(markdownPath, outputPath, attempt.Engine, attempt.Minimal)
		attempt.Err = s.run(ctx, s.binary, args...)
		result.Attempts = append(result.Attempts, *attempt)

		if attempt.Err == nil {
			result.State = StateSucceeded
			result.Engine = attempt.Engine
			result.Minimal = attempt.Minimal
			return result, nil
		}
	}

	result.State = StateExhausted
	return result, fmt.Errorf("render: all %d engine attempts failed, last: %w",
		len(result.Attempts), result.Attempts[len(result.Attempts)-1].Err)
}

func (s *Service) buildArgs(markdownPath, outputPath, engine string, minimal bool) []string {
	args := []string{markdownPath, "-o", outputPath, "--pdf-engine=" + engine}
	if minimal {
		return args
	}
	args = append(args,
		"--toc",
		"--toc-depth=3",
		"--number-sections",
		"--variable", "fontsize=12pt",
	)
	if s.cfg.HeaderFile != "" {
		args = append(args, "-H", s.cfg.HeaderFile)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
