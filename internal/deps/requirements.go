package deps

import "lectern/internal/config"

// Requirements lists the external tools for the configured pipeline. Render
// tools are optional when rendering is disabled; the LaTeX engines are always
// optional individually since pandoc falls back between them.
func Requirements(cfg *config.Config) []Requirement {
	renderOptional := !cfg.Pipeline.Render
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Audio extraction from video files",
		},
		{
			Name:        "Whisper",
			Command:     cfg.WhisperBinary(),
			Description: "Speech-to-text transcription",
		},
		{
			Name:        "Tesseract",
			Command:     cfg.TesseractBinary(),
			Description: "OCR for image batches",
		},
		{
			Name:        "Pandoc",
			Command:     cfg.PandocBinary(),
			Description: "Markdown to PDF rendering",
			Optional:    renderOptional,
		},
	}
	for _, engine := range cfg.Render.Engines {
		reqs = append(reqs, Requirement{
			Name:        engine,
			Command:     engine,
			Description: "PDF engine for pandoc",
			Optional:    true,
		})
	}
	return reqs
}
