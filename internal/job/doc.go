// Package job wires configuration, preflight checks, the chunker, a
// recognizer, the transcription driver and the WebVTT writer into a single
// resumable job, and records the outcome in history and notifications.
//
// Collaborators are injectable through Options so the whole flow can be
// exercised without ffmpeg or a speech model.
package job
