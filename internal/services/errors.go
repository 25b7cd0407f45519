package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtraction    = errors.New("extraction error")
	ErrTranscription = errors.New("transcription error")
	ErrOCR           = errors.New("ocr error")
	ErrGeneration    = errors.New("generation error")
	ErrRender        = errors.New("render error")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsUnitFatal reports whether an error should abort all remaining stages for
// the unit that produced it. Render failures leave earlier artifacts usable,
// so they only mark the unit partial.
func IsUnitFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrRender)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
