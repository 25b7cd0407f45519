package config

const (
	defaultLogDir         = "~/.local/share/lectern/logs"
	defaultWhisperModel   = "medium"
	defaultWhisperLang    = "en"
	defaultOCRLanguage    = "eng"
	defaultOllamaHost     = "http://127.0.0.1:11434"
	defaultOllamaModel    = "gemma3"
	defaultOllamaTimeout  = 600
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultHistoryEnabled = true
	defaultRenderEnabled  = true
)

func defaultRenderEngines() []string {
	return []string{"xelatex", "pdflatex"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Pipeline: Pipeline{
			Render: defaultRenderEnabled,
		},
		Whisper: Whisper{
			Model:    defaultWhisperModel,
			Language: defaultWhisperLang,
		},
		OCR: OCR{
			Language: defaultOCRLanguage,
		},
		Ollama: Ollama{
			Host:           defaultOllamaHost,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultOllamaTimeout,
		},
		Render: Render{
			Engines: defaultRenderEngines(),
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
