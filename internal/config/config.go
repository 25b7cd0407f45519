package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Pipeline contains switches for optional pipeline stages.
type Pipeline struct {
	Render bool `toml:"render"`
}

// Whisper contains speech-to-text settings.
type Whisper struct {
	Model    string `toml:"model"`
	Language string `toml:"language"`
}

// OCR contains image text-extraction settings.
type OCR struct {
	Language string `toml:"language"`
}

// Ollama contains settings for the study-material generation model.
type Ollama struct {
	Host           string `toml:"host"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PromptFile     string `toml:"prompt_file"`
}

// Render contains document rendering settings.
type Render struct {
	Engines    []string `toml:"engines"`
	HeaderFile string   `toml:"header_file"`
}

// Tools contains external binary overrides. Empty values resolve to the
// bare command name via PATH.
type Tools struct {
	FFmpeg    string `toml:"ffmpeg"`
	Whisper   string `toml:"whisper"`
	Tesseract string `toml:"tesseract"`
	Pandoc    string `toml:"pandoc"`
}

// History contains settings for the per-run outcome database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Lectern.
//
// Configuration sections by subsystem:
//   - Paths: log and history database location
//   - Pipeline: stage switches (document rendering on/off)
//   - Whisper: transcription model and language hints
//   - OCR: tesseract language hint
//   - Ollama: generation model host, name, timeout, and prompt template
//   - Render: pandoc engine fallback order and LaTeX header include
//   - Tools: external binary path overrides
//   - History: run-history database switch
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Pipeline Pipeline `toml:"pipeline"`
	Whisper  Whisper  `toml:"whisper"`
	OCR      OCR      `toml:"ocr"`
	Ollama   Ollama   `toml:"ollama"`
	Render   Render   `toml:"render"`
	Tools    Tools    `toml:"tools"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable to invoke.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// WhisperBinary returns the whisper executable to invoke.
func (c *Config) WhisperBinary() string {
	if bin := strings.TrimSpace(c.Tools.Whisper); bin != "" {
		return bin
	}
	return "whisper"
}

// TesseractBinary returns the tesseract executable to invoke.
func (c *Config) TesseractBinary() string {
	if bin := strings.TrimSpace(c.Tools.Tesseract); bin != "" {
		return bin
	}
	return "tesseract"
}

// PandocBinary returns the pandoc executable to invoke.
func (c *Config) PandocBinary() string {
	if bin := strings.TrimSpace(c.Tools.Pandoc); bin != "" {
		return bin
	}
	return "pandoc"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
