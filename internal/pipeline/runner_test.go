package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/discovery"
	"lectern/internal/plan"
	"lectern/internal/services"
	"lectern/internal/services/pandoc"
	"lectern/internal/services/tesseract"
)

// fakeCollab implements every collaborator interface and counts invocations.
type fakeCollab struct {
	extractCalls    int
	transcribeCalls int
	ocrCalls        int
	generateCalls   int
	renderCalls     int

	ocrBatches [][]string

	failExtract    bool
	failTranscribe bool
	failOCR        bool
	failGenerate   bool
	failRender     bool

	transcribeText string
}

func (f *fakeCollab) ExtractAudio(_ context.Context, _, dest string) error {
	f.extractCalls++
	if f.failExtract {
		return errors.New("ffmpeg exploded")
	}
	return os.WriteFile(dest, []byte("audio"), 0o644)
}

func (f *fakeCollab) Transcribe(_ context.Context, source, _ string) (string, error) {
	f.transcribeCalls++
	if f.failTranscribe {
		return "", errors.New("whisper exploded")
	}
	if f.transcribeText != "" {
		return f.transcribeText, nil
	}
	return "transcript of " + filepath.Base(source), nil
}

func (f *fakeCollab) RecognizeBatch(_ context.Context, images []string) (tesseract.BatchResult, error) {
	f.ocrCalls++
	f.ocrBatches = append(f.ocrBatches, append([]string{}, images...))
	if f.failOCR {
		return tesseract.BatchResult{}, errors.New("tesseract exploded")
	}
	var pages []string
	for _, image := range images {
		pages = append(pages, "ocr of "+filepath.Base(image))
	}
	return tesseract.BatchResult{Text: strings.Join(pages, "\n\n")}, nil
}

func (f *fakeCollab) GenerateStudy(_ context.Context, _, transcript string) (string, error) {
	f.generateCalls++
	if f.failGenerate {
		return "", errors.New("ollama exploded")
	}
	return "# Study\n\n" + transcript, nil
}

func (f *fakeCollab) Render(_ context.Context, _, outputPath string) (pandoc.Result, error) {
	f.renderCalls++
	if f.failRender {
		return pandoc.Result{
			State:    pandoc.StateExhausted,
			Attempts: []pandoc.Attempt{{Engine: "xelatex", Err: errors.New("boom")}},
		}, errors.New("all engines failed")
	}
	if err := os.WriteFile(outputPath, []byte("%PDF"), 0o644); err != nil {
		return pandoc.Result{}, err
	}
	return pandoc.Result{
		State:    pandoc.StateSucceeded,
		Engine:   "xelatex",
		Attempts: []pandoc.Attempt{{Engine: "xelatex"}},
	}, nil
}

func (f *fakeCollab) totalCalls() int {
	return f.extractCalls + f.transcribeCalls + f.ocrCalls + f.generateCalls + f.renderCalls
}

func newTestRunner(collab *fakeCollab) *Runner {
	return NewRunner(RunnerConfig{
		Extractor:     collab,
		Transcriber:   collab,
		Recognizer:    collab,
		Generator:     collab,
		Renderer:      collab,
		RenderEnabled: true,
	})
}

func unitFor(t *testing.T, dir string, names ...string) plan.Unit {
	t.Helper()
	units := unitsFor(t, dir, names...)
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	return units[0]
}

func unitsFor(t *testing.T, dir string, names ...string) []plan.Unit {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := discovery.Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	return plan.Resolve(dir, discovery.GroupByStem(files))
}

func TestRunVideoUnitFullChain(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "lecture01.mp4")
	collab := &fakeCollab{}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if collab.extractCalls != 1 || collab.transcribeCalls != 1 || collab.generateCalls != 1 || collab.renderCalls != 1 {
		t.Fatalf("calls = %+v", collab)
	}

	for _, artifact := range []string{"lecture01.mp3", "lecture01.txt", "lecture01_study.md", "lecture01.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, artifact)); err != nil {
			t.Fatalf("missing artifact %s: %v", artifact, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "lecture01.mp4")
	collab := &fakeCollab{}
	runner := newTestRunner(collab)

	first := runner.Run(context.Background(), unit)
	if first.Outcome != OutcomeSuccess {
		t.Fatalf("first run: %v", first.Err)
	}
	firstCalls := collab.totalCalls()

	second := runner.Run(context.Background(), unit)
	if second.Outcome != OutcomeSuccess {
		t.Fatalf("second run: %v", second.Err)
	}
	if collab.totalCalls() != firstCalls {
		t.Fatalf("second run made %d collaborator calls, want 0", collab.totalCalls()-firstCalls)
	}
	if len(second.SkippedStages) != 4 {
		t.Fatalf("skipped stages = %v", second.SkippedStages)
	}
}

func TestRunAudioUnitSkipsExtract(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "podcast.mp3")
	collab := &fakeCollab{}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if collab.extractCalls != 0 {
		t.Fatal("audio unit must not extract")
	}
	if collab.transcribeCalls != 1 {
		t.Fatalf("transcribe calls = %d", collab.transcribeCalls)
	}
}

func TestRunTextUnitPassesThrough(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "notes.txt")
	collab := &fakeCollab{}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if collab.transcribeCalls != 0 || collab.ocrCalls != 0 {
		t.Fatal("text unit needs no transcription")
	}

	study, err := os.ReadFile(filepath.Join(dir, "notes_study.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(study), "content") {
		t.Fatalf("study should derive from source text, got %q", study)
	}
}

func TestRunEmptyTextUnitFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	files, err := discovery.Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	units := plan.Resolve(dir, discovery.GroupByStem(files))
	collab := &fakeCollab{}

	result := newTestRunner(collab).Run(context.Background(), units[0])
	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if !errors.Is(result.Err, services.ErrValidation) {
		t.Fatalf("err = %v", result.Err)
	}
	if result.FailedStage != StageValidate {
		t.Fatalf("failed stage = %q, want %q", result.FailedStage, StageValidate)
	}
	if collab.totalCalls() != 0 {
		t.Fatal("no collaborator should run for an empty text source")
	}
}

func TestRunImageUnitBatchesInOrder(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "slides01.png", "slides01.jpg")
	collab := &fakeCollab{}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if collab.ocrCalls != 1 {
		t.Fatalf("ocr calls = %d, want one batch", collab.ocrCalls)
	}
	batch := collab.ocrBatches[0]
	if len(batch) != 2 || filepath.Base(batch[0]) != "slides01.jpg" || filepath.Base(batch[1]) != "slides01.png" {
		t.Fatalf("batch = %v", batch)
	}
	if _, err := os.Stat(filepath.Join(dir, "slides01.txt")); err != nil {
		t.Fatalf("missing transcript: %v", err)
	}
}

func TestRunRenderFailureIsPartial(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "talk.mp3")
	collab := &fakeCollab{failRender: true}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomePartial {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if result.FailedStage != StageRender {
		t.Fatalf("failed stage = %q", result.FailedStage)
	}
	if !errors.Is(result.Err, services.ErrRender) {
		t.Fatalf("err = %v", result.Err)
	}
	// The study material survives the render failure.
	if _, err := os.Stat(filepath.Join(dir, "talk_study.md")); err != nil {
		t.Fatalf("study artifact lost: %v", err)
	}
}

func TestRunTranscribeFailureAbortsUnit(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "talk.mp3")
	collab := &fakeCollab{failTranscribe: true}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if result.FailedStage != StageTranscribe {
		t.Fatalf("failed stage = %q", result.FailedStage)
	}
	if collab.generateCalls != 0 || collab.renderCalls != 0 {
		t.Fatal("downstream stages must not run after a fatal failure")
	}
}

func TestRunExtractFailureAbortsUnit(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "clip.mp4")
	collab := &fakeCollab{failExtract: true}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeFailed || result.FailedStage != StageExtract {
		t.Fatalf("result = %v %q", result.Outcome, result.FailedStage)
	}
	if !errors.Is(result.Err, services.ErrExtraction) {
		t.Fatalf("err = %v", result.Err)
	}
}

func TestRunEmptyTranscriptSkipsGeneration(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "silence.mp3")
	collab := &fakeCollab{transcribeText: "   \n"}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if !errors.Is(result.Err, services.ErrValidation) {
		t.Fatalf("err = %v", result.Err)
	}
	if collab.generateCalls != 0 {
		t.Fatal("generation must not run on an empty transcript")
	}
}

func TestRunResumesFromExistingTranscript(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "talk.mp3")
	if err := os.WriteFile(filepath.Join(dir, "talk.txt"), []byte("already transcribed"), 0o644); err != nil {
		t.Fatal(err)
	}
	collab := &fakeCollab{}

	result := newTestRunner(collab).Run(context.Background(), unit)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if collab.transcribeCalls != 0 {
		t.Fatal("transcription must be skipped when its artifact exists")
	}
	study, err := os.ReadFile(filepath.Join(dir, "talk_study.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(study), "already transcribed") {
		t.Fatalf("generation should consume the existing transcript, got %q", study)
	}
}

func TestRunRenderDisabled(t *testing.T) {
	dir := t.TempDir()
	unit := unitFor(t, dir, "talk.mp3")
	collab := &fakeCollab{failRender: true}
	runner := NewRunner(RunnerConfig{
		Extractor:   collab,
		Transcriber: collab,
		Recognizer:  collab,
		Generator:   collab,
		Renderer:    collab,
	})

	result := runner.Run(context.Background(), unit)
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if collab.renderCalls != 0 {
		t.Fatal("renderer must not run when rendering is disabled")
	}
}
