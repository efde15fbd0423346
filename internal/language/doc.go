// Package language normalizes the configured transcription language into the
// forms each recognizer expects: ISO 639-1 codes for WhisperX, whisper.cpp and
// the OpenAI API, plus "auto" for detection. Parsing is backed by
// golang.org/x/text so BCP 47 tags such as "en-US" are accepted.
package language
