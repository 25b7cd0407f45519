package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/media"
	"lectern/internal/plan"
	"lectern/internal/services"
	"lectern/internal/services/pandoc"
	"lectern/internal/services/tesseract"
)

// Stage names used in results and logging.
const (
	StageValidate   = "validate"
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageOCR        = "ocr"
	StageGenerate   = "generate"
	StageRender     = "render"
)

// Extractor pulls the audio track out of a video file.
type Extractor interface {
	ExtractAudio(ctx context.Context, source, dest string) error
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) (string, error)
}

// Recognizer runs OCR over an ordered image batch.
type Recognizer interface {
	RecognizeBatch(ctx context.Context, images []string) (tesseract.BatchResult, error)
}

// Generator produces study material from a transcript.
type Generator interface {
	GenerateStudy(ctx context.Context, template, transcript string) (string, error)
}

// Renderer converts a Markdown file to a PDF document.
type Renderer interface {
	Render(ctx context.Context, markdownPath, outputPath string) (pandoc.Result, error)
}

// RunnerConfig wires the collaborators and per-run options into a Runner.
type RunnerConfig struct {
	Extractor      Extractor
	Transcriber    Transcriber
	Recognizer     Recognizer
	Generator      Generator
	Renderer       Renderer
	PromptTemplate string
	RenderEnabled  bool
	Logger         *slog.Logger
}

// Runner drives one processing unit through its stage sequence, probing for
// each stage's artifact before invoking the collaborator that would produce
// it. The filesystem is the only completion record.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner constructs a Runner. A nil logger disables logging.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{cfg: cfg, logger: logging.NewComponentLogger(logger, "pipeline")}
}

// Run executes the unit's stages in order. Failures in extraction,
// transcription, OCR, or generation abort the unit's remaining stages; a
// render failure keeps the study material and marks the unit partial.
func (r *Runner) Run(ctx context.Context, unit plan.Unit) UnitResult {
	ctx = services.WithUnit(ctx, unit.Prefix)
	logger := logging.WithContext(ctx, r.logger)

	result := UnitResult{Unit: unit, Artifacts: unit.Artifacts()}

	transcript, stage, err := r.produceTranscript(ctx, logger, unit, &result)
	if err != nil {
		return r.fail(logger, result, stage, err)
	}

	if err := r.produceStudy(ctx, logger, unit, transcript, &result); err != nil {
		return r.fail(logger, result, StageGenerate, err)
	}

	if err := r.produceDocument(ctx, logger, &result); err != nil {
		result.Outcome = OutcomePartial
		result.FailedStage = StageRender
		result.Err = err
		logger.Warn("render failed, keeping study material", logging.Error(err))
		return result
	}

	result.Outcome = OutcomeSuccess
	logger.Info("unit complete",
		logging.String("kind", unit.Kind.String()),
		logging.Int("skipped_stages", len(result.SkippedStages)))
	return result
}

func (r *Runner) fail(logger *slog.Logger, result UnitResult, stage string, err error) UnitResult {
	result.Outcome = OutcomeFailed
	result.FailedStage = stage
	result.Err = err
	logger.Error("unit failed",
		logging.String("stage", stage),
		logging.Error(err))
	return result
}

// produceTranscript runs the category-specific stages that end with the
// transcript artifact on disk. It returns the transcript text when it was
// produced in-process; after a skip the artifact supplies the text instead.
func (r *Runner) produceTranscript(ctx context.Context, logger *slog.Logger, unit plan.Unit, result *UnitResult) (string, string, error) {
	artifacts := result.Artifacts

	switch unit.Category {
	case media.CategoryImage:
		text, err := r.runOCR(ctx, logger, unit, result)
		return text, StageOCR, err

	case media.CategoryVideo:
		audio := artifacts.Audio
		if fileutil.NonEmpty(audio) {
			r.skip(logger, result, StageExtract, audio)
		} else {
			sctx := services.WithStage(ctx, StageExtract)
			logger.Info("extracting audio", logging.String("source", unit.Source.Path))
			if err := r.cfg.Extractor.ExtractAudio(sctx, unit.Source.Path, audio); err != nil {
				return "", StageExtract, services.Wrap(services.ErrExtraction, StageExtract, "ffmpeg", unit.Source.Name, err)
			}
		}
		text, err := r.runTranscribe(ctx, logger, audio, result)
		return text, StageTranscribe, err

	case media.CategoryAudio:
		text, err := r.runTranscribe(ctx, logger, unit.Source.Path, result)
		return text, StageTranscribe, err

	case media.CategoryText:
		// The source already is the transcript artifact; validate it has
		// content and pass it through. Failing here is a pre-stage check,
		// so the report carries its own stage label.
		if !fileutil.NonEmpty(unit.Source.Path) {
			return "", StageValidate, services.Wrap(services.ErrValidation, StageValidate, "pass-through",
				fmt.Sprintf("%s is empty", unit.Source.Name), nil)
		}
		r.skip(logger, result, StageTranscribe, unit.Source.Path)
		return "", StageTranscribe, nil

	default:
		return "", StageValidate, services.Wrap(services.ErrValidation, StageValidate, "",
			fmt.Sprintf("unsupported category %s", unit.Category), nil)
	}
}

func (r *Runner) runTranscribe(ctx context.Context, logger *slog.Logger, source string, result *UnitResult) (string, error) {
	transcriptPath := result.Artifacts.Transcript
	if fileutil.NonEmpty(transcriptPath) {
		r.skip(logger, result, StageTranscribe, transcriptPath)
		return "", nil
	}

	sctx := services.WithStage(ctx, StageTranscribe)
	logger.Info("transcribing", logging.String("source", source))
	text, err := r.cfg.Transcriber.Transcribe(sctx, source, result.Unit.Dir)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, StageTranscribe, "whisper", "", err)
	}
	if err := fileutil.WriteFileAtomic(transcriptPath, []byte(text), 0o644); err != nil {
		return "", services.Wrap(services.ErrTranscription, StageTranscribe, "write transcript", transcriptPath, err)
	}
	return text, nil
}

func (r *Runner) runOCR(ctx context.Context, logger *slog.Logger, unit plan.Unit, result *UnitResult) (string, error) {
	transcriptPath := result.Artifacts.Transcript
	if fileutil.NonEmpty(transcriptPath) {
		r.skip(logger, result, StageOCR, transcriptPath)
		return "", nil
	}

	paths := make([]string, 0, len(unit.Images))
	for _, image := range unit.Images {
		paths = append(paths, image.Path)
	}

	sctx := services.WithStage(ctx, StageOCR)
	logger.Info("recognizing images", logging.Int("count", len(paths)))
	batch, err := r.cfg.Recognizer.RecognizeBatch(sctx, paths)
	if err != nil {
		return "", services.Wrap(services.ErrOCR, StageOCR, "tesseract", "", err)
	}
	for _, page := range batch.FailedPages {
		logger.Warn("page skipped", logging.String("image", page))
	}
	if err := fileutil.WriteFileAtomic(transcriptPath, []byte(batch.Text), 0o644); err != nil {
		return "", services.Wrap(services.ErrOCR, StageOCR, "write transcript", transcriptPath, err)
	}
	return batch.Text, nil
}

func (r *Runner) produceStudy(ctx context.Context, logger *slog.Logger, unit plan.Unit, transcript string, result *UnitResult) error {
	studyPath := result.Artifacts.Study
	if fileutil.NonEmpty(studyPath) {
		r.skip(logger, result, StageGenerate, studyPath)
		return nil
	}

	if transcript == "" {
		// The transcribe stage was skipped; the artifact supplies its text
		// downstream as if it had just run.
		data, err := os.ReadFile(r.transcriptSource(unit, result))
		if err != nil {
			return services.Wrap(services.ErrGeneration, StageGenerate, "read transcript", "", err)
		}
		transcript = strings.ToValidUTF8(string(data), "�")
	}
	if strings.TrimSpace(transcript) == "" {
		return services.Wrap(services.ErrValidation, StageGenerate, "",
			"transcript is empty, nothing to generate from", nil)
	}

	sctx := services.WithStage(ctx, StageGenerate)
	logger.Info("generating study material")
	study, err := r.cfg.Generator.GenerateStudy(sctx, r.cfg.PromptTemplate, transcript)
	if err != nil {
		return services.Wrap(services.ErrGeneration, StageGenerate, "ollama", "", err)
	}
	if err := fileutil.WriteFileAtomic(studyPath, []byte(study), 0o644); err != nil {
		return services.Wrap(services.ErrGeneration, StageGenerate, "write study", studyPath, err)
	}
	return nil
}

// transcriptSource returns the path generation reads when transcription was
// skipped. Text units pass their source straight through.
func (r *Runner) transcriptSource(unit plan.Unit, result *UnitResult) string {
	if unit.Category == media.CategoryText {
		return unit.Source.Path
	}
	return result.Artifacts.Transcript
}

func (r *Runner) produceDocument(ctx context.Context, logger *slog.Logger, result *UnitResult) error {
	if !r.cfg.RenderEnabled {
		r.skip(logger, result, StageRender, "")
		return nil
	}
	documentPath := result.Artifacts.Document
	if fileutil.NonEmpty(documentPath) {
		r.skip(logger, result, StageRender, documentPath)
		return nil
	}

	sctx := services.WithStage(ctx, StageRender)
	logger.Info("rendering document", logging.String("output", documentPath))
	renderResult, err := r.cfg.Renderer.Render(sctx, result.Artifacts.Study, documentPath)
	result.RenderAttempts = len(renderResult.Attempts)
	if err != nil {
		return services.Wrap(services.ErrRender, StageRender, "pandoc", "", err)
	}
	result.RenderEngine = renderResult.Engine
	if renderResult.Minimal {
		logger.Warn("rendered with minimal formatting", logging.String("engine", renderResult.Engine))
	}
	return nil
}

func (r *Runner) skip(logger *slog.Logger, result *UnitResult, stage, artifact string) {
	result.SkippedStages = append(result.SkippedStages, stage)
	if artifact != "" {
		logger.Debug("stage skipped, artifact exists",
			logging.String("stage", stage),
			logging.String("artifact", artifact))
	}
}
