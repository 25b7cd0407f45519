// Package pipeline is the staged processing engine. The Runner drives one
// unit through extract, transcribe or OCR, generate, and render, probing for
// each stage's artifact first so finished work is never repeated. The
// Orchestrator walks the tree directory by directory, resolving units in
// three passes (primary chains, image-only groups, pooled loose images) and
// aggregating per-unit outcomes into a best-effort report.
package pipeline
