// Package main hosts the chunkvtt CLI entrypoint and command graph.
//
// The cobra command tree resolves configuration and logging once, then hands
// off to internal/job for transcription and to the ledger, history and
// preflight packages for the inspection commands. Terminal niceties such as
// the progress bar and the discard prompt live here; the internal packages
// stay non-interactive.
package main
