// Command lectern walks a directory tree of lecture media, transcribes or
// OCRs each logical unit, generates study material with a local LLM, and
// renders it to PDF. Finished artifacts are skipped on re-runs.
package main
