// Package ffmpeg extracts audio tracks from video sources.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command is the default ffmpeg binary name resolved via PATH.
const Command = "ffmpeg"

// Service invokes ffmpeg for audio extraction.
type Service struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an ffmpeg service using the given binary path.
func NewService(binary string) *Service {
	if binary == "" {
		binary = Command
	}
	return &Service{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// ExtractAudio writes the source's audio stream to dest as MP3. The encoder
// quality setting favors transcription fidelity over file size.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	if source == "" {
		return fmt.Errorf("extract audio: source path required")
	}
	if dest == "" {
		return fmt.Errorf("extract audio: destination path required")
	}
	args := buildExtractArgs(source, dest)
	return s.run(ctx, s.binary, args...)
}

func buildExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		dest,
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
