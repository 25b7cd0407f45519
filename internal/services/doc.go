// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, unit prefixes, stage names, and
//     directories for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into consistent unit outcomes (fatal vs partial).
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
