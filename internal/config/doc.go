// Package config loads, normalizes, and validates chunkvtt configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY. The Config type centralizes every knob the CLI and the
// transcription job need so chunk directories, the resume ledger location and
// recognizer credentials are discovered in one pass.
package config
