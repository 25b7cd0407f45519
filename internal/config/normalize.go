package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOllama(); err != nil {
		return err
	}
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeOCR()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOllama() error {
	c.Ollama.Host = strings.TrimSpace(c.Ollama.Host)
	if c.Ollama.Host == "" {
		if value, ok := os.LookupEnv("OLLAMA_HOST"); ok && strings.TrimSpace(value) != "" {
			c.Ollama.Host = strings.TrimSpace(value)
		} else {
			c.Ollama.Host = defaultOllamaHost
		}
	}
	if !strings.Contains(c.Ollama.Host, "://") {
		c.Ollama.Host = "http://" + c.Ollama.Host
	}
	c.Ollama.Host = strings.TrimRight(c.Ollama.Host, "/")
	c.Ollama.Model = strings.TrimSpace(c.Ollama.Model)
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaultOllamaModel
	}
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = defaultOllamaTimeout
	}
	if strings.TrimSpace(c.Ollama.PromptFile) != "" {
		expanded, err := expandPath(c.Ollama.PromptFile)
		if err != nil {
			return fmt.Errorf("ollama.prompt_file: %w", err)
		}
		c.Ollama.PromptFile = expanded
	}
	return nil
}

func (c *Config) normalizeRender() error {
	engines := make([]string, 0, len(c.Render.Engines))
	for _, engine := range c.Render.Engines {
		engine = strings.ToLower(strings.TrimSpace(engine))
		if engine == "" {
			continue
		}
		engines = append(engines, engine)
	}
	if len(engines) == 0 {
		engines = defaultRenderEngines()
	}
	c.Render.Engines = engines
	if strings.TrimSpace(c.Render.HeaderFile) != "" {
		expanded, err := expandPath(c.Render.HeaderFile)
		if err != nil {
			return fmt.Errorf("render.header_file: %w", err)
		}
		c.Render.HeaderFile = expanded
	}
	return nil
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.Language = strings.TrimSpace(c.Whisper.Language)
	if c.Whisper.Language == "" {
		c.Whisper.Language = defaultWhisperLang
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
