package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
)

var knownEngines = map[string]struct{}{
	"xelatex":  {},
	"pdflatex": {},
	"lualatex": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOllama(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOllama() error {
	if _, err := url.Parse(c.Ollama.Host); err != nil {
		return fmt.Errorf("ollama.host is not a valid URL: %w", err)
	}
	if c.Ollama.PromptFile != "" {
		info, err := os.Stat(c.Ollama.PromptFile)
		if err != nil {
			return fmt.Errorf("ollama.prompt_file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("ollama.prompt_file %q is a directory", c.Ollama.PromptFile)
		}
	}
	return nil
}

func (c *Config) validateRender() error {
	for _, engine := range c.Render.Engines {
		if _, ok := knownEngines[engine]; !ok {
			return fmt.Errorf("render.engines contains unsupported engine %q", engine)
		}
	}
	if c.Render.HeaderFile != "" {
		info, err := os.Stat(c.Render.HeaderFile)
		if err != nil {
			return fmt.Errorf("render.header_file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("render.header_file %q is a directory", c.Render.HeaderFile)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
}
