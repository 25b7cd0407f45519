// Package tesseract runs the tesseract CLI to recognize text in images.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Command is the default tesseract binary name resolved via PATH.
const Command = "tesseract"

// DefaultLanguage is used when no recognition language is configured.
const DefaultLanguage = "eng"

// Config captures the recognition settings.
type Config struct {
	Language string
}

// Service invokes tesseract once per image and assembles batch output.
type Service struct {
	cfg           Config
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a tesseract service with the given configuration.
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

// Language returns the configured recognition language for logging.
func (s *Service) Language() string {
	if s.cfg.Language != "" {
		return s.cfg.Language
	}
	return DefaultLanguage
}

// RecognizeImage runs tesseract on a single image and returns its text.
// Tesseract writes {outputbase}.txt; a scratch directory keeps that file out
// of the media tree.
func (s *Service) RecognizeImage(ctx context.Context, imagePath string) (string, error) {
	if imagePath == "" {
		return "", fmt.Errorf("ocr: image path required")
	}

	workDir, err := os.MkdirTemp("", "lectern-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr: create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	outputBase := filepath.Join(workDir, "page")
	args := []string{imagePath, outputBase, "-l", s.Language()}
	if err := s.run(ctx, s.binary, args...); err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}

	data, err := os.ReadFile(outputBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("tesseract: read output: %w", err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// BatchResult holds the combined text of an image batch along with the pages
// that could not be recognized.
type BatchResult struct {
	Text        string
	FailedPages []string
}

// RecognizeBatch runs OCR across images in their given order and joins the
// non-blank page texts with blank lines. Individual page failures are
// tolerated; the batch fails only when no page produced text.
func (s *Service) RecognizeBatch(ctx context.Context, images []string) (BatchResult, error) {
	var result BatchResult
	if len(images) == 0 {
		return result, fmt.Errorf("ocr batch: no images supplied")
	}

	var pages []string
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		text, err := s.RecognizeImage(ctx, image)
		if err != nil {
			result.FailedPages = append(result.FailedPages, image)
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	if len(pages) == 0 {
		return result, fmt.Errorf("ocr batch: no text recognized in %d image(s)", len(images))
	}
	result.Text = strings.Join(pages, "\n\n")
	return result, nil
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
