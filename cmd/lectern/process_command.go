package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/history"
	"lectern/internal/pipeline"
	"lectern/internal/services"
	"lectern/internal/services/ffmpeg"
	"lectern/internal/services/ollama"
	"lectern/internal/services/pandoc"
	"lectern/internal/services/tesseract"
	"lectern/internal/services/whisper"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var noRender bool
	var modelFlag string
	var languageFlag string
	var promptFlag string

	cmd := &cobra.Command{
		Use:   "process <directory>",
		Short: "Process a directory tree of media files into study material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			root, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}
			root, err = filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve root: %w", err)
			}

			if noRender {
				cfg.Pipeline.Render = false
			}
			if modelFlag != "" {
				cfg.Whisper.Model = modelFlag
			}
			if languageFlag != "" {
				cfg.Whisper.Language = languageFlag
			}
			if promptFlag != "" {
				expanded, err := config.ExpandPath(promptFlag)
				if err != nil {
					return fmt.Errorf("resolve prompt file: %w", err)
				}
				cfg.Ollama.PromptFile = expanded
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				var names []string
				for _, status := range missing {
					names = append(names, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "lectern.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another lectern run is already active")
			}
			defer func() { _ = lock.Unlock() }()

			template, err := ollama.LoadPromptTemplate(cfg.Ollama.PromptFile)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runID := uuid.NewString()
			runCtx = services.WithRunID(runCtx, runID)

			runner := pipeline.NewRunner(pipeline.RunnerConfig{
				Extractor: ffmpeg.NewService(cfg.FFmpegBinary()),
				Transcriber: whisper.NewService(whisper.Config{
					Model:    cfg.Whisper.Model,
					Language: cfg.Whisper.Language,
				}, cfg.WhisperBinary()),
				Recognizer: tesseract.NewService(tesseract.Config{
					Language: cfg.OCR.Language,
				}, cfg.TesseractBinary()),
				Generator: ollama.NewClient(ollama.Config{
					Host:           cfg.Ollama.Host,
					Model:          cfg.Ollama.Model,
					TimeoutSeconds: cfg.Ollama.TimeoutSeconds,
				}),
				Renderer: pandoc.NewService(pandoc.Config{
					Engines:    cfg.Render.Engines,
					HeaderFile: cfg.Render.HeaderFile,
				}, cfg.PandocBinary()),
				PromptTemplate: template,
				RenderEnabled:  cfg.Pipeline.Render,
				Logger:         logger,
			})
			orchestrator := pipeline.NewOrchestrator(runner, logger)

			var store *history.Store
			if cfg.History.Enabled {
				store, err = history.Open(cfg)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close()
				if err := store.StartRun(runCtx, runID, root); err != nil {
					return fmt.Errorf("record run start: %w", err)
				}
			}

			report, runErr := orchestrator.ProcessTree(runCtx, root)

			if store != nil && report != nil {
				recordReport(store, report)
			}
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			if runErr != nil {
				return runErr
			}
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%d unit(s) failed; re-run to retry them", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRender, "no-render", false, "Skip PDF rendering, keep Markdown study material")
	cmd.Flags().StringVar(&modelFlag, "model", "", "Whisper model override")
	cmd.Flags().StringVar(&languageFlag, "language", "", "Transcription language override")
	cmd.Flags().StringVar(&promptFlag, "prompt", "", "Prompt template file with a {transcript} placeholder")
	return cmd
}

func recordReport(store *history.Store, report *pipeline.Report) {
	ctx := context.Background()
	for _, unit := range report.Units {
		record := history.UnitRecord{
			RunID:        report.RunID,
			Dir:          unit.Unit.Dir,
			Prefix:       unit.Unit.Prefix,
			Kind:         unit.Unit.Kind.String(),
			Outcome:      unit.Outcome.String(),
			FailedStage:  unit.FailedStage,
			RenderEngine: unit.RenderEngine,
		}
		if unit.Err != nil {
			record.Error = unit.Err.Error()
		}
		// History is observational; a failed insert never fails the run.
		_ = store.RecordUnit(ctx, record)
	}
	_ = store.FinishRun(ctx, report.RunID, report.Succeeded(), report.Partial(), report.Failed())
}
