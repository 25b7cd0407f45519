// Package whisper runs the whisper CLI to transcribe audio files.
package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is the default whisper binary name resolved via PATH.
const Command = "whisper"

// DefaultModel is used when no model is configured.
const DefaultModel = "medium"

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "en"

// Config captures the transcription settings.
type Config struct {
	Model    string
	Language string
}

// Service invokes the whisper CLI and reads back its text output.
type Service struct {
	cfg           Config
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service with the given configuration.
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

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe runs whisper on source and returns the transcript text. Whisper
// writes {stem}.txt into outputDir; the file is read back with invalid UTF-8
// bytes replaced so transcripts from odd encodings still load.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if err := s.run(ctx, s.binary, s.buildArgs(source, outputDir)...); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	outputPath := filepath.Join(outputDir, stem+".txt")
	data, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("whisper: read transcript %s: %w", outputPath, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func (s *Service) buildArgs(source, outputDir string) []string {
	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}
	language := s.cfg.Language
	if language == "" {
		language = DefaultLanguage
	}
	return []string{
		source,
		"--model", model,
		"--language", language,
		"--output_format", "txt",
		"--output_dir", outputDir,
	}
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
