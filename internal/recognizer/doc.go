// Package recognizer adapts speech recognition engines to the per-chunk
// Recognizer interface used by the transcription pipeline.
//
// Three engines are supported: WhisperX launched through uvx, the whisper.cpp
// command line tool, and any OpenAI compatible transcription endpoint. Each
// adapter declares its AdvancePolicy so the pipeline knows whether segment
// timestamps or the nominal chunk length move the timeline forward. All
// adapters drop empty segments and return them ordered by start time.
package recognizer
