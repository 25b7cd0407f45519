package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapCombinesDetailAndMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := Wrap(ErrTranscription, "transcribe", "whisper", "model load failed", base)

	if !errors.Is(err, ErrTranscription) {
		t.Fatal("expected wrapped error to match marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to match cause")
	}
	msg := err.Error()
	for _, want := range []string{"transcribe", "whisper", "model load failed", "exit status 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(ErrValidation, "generate", "", "empty transcript", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected validation marker")
	}
	if !strings.Contains(err.Error(), "generate: empty transcript") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("expected default marker")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsUnitFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"render", Wrap(ErrRender, "render", "pandoc", "all engines failed", nil), false},
		{"extraction", Wrap(ErrExtraction, "extract", "ffmpeg", "bad input", nil), true},
		{"transcription", Wrap(ErrTranscription, "transcribe", "whisper", "", nil), true},
		{"ocr", Wrap(ErrOCR, "ocr", "tesseract", "", nil), true},
		{"generation", Wrap(ErrGeneration, "generate", "ollama", "", nil), true},
	}
	for _, tc := range cases {
		if got := IsUnitFatal(tc.err); got != tc.fatal {
			t.Errorf("%s: IsUnitFatal = %v, want %v", tc.name, got, tc.fatal)
		}
	}
}
