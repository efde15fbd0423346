// Package transcribe drives a recognizer over an ordered list of chunks and
// assembles one continuous caption timeline.
//
// Each chunk's segments are re-based by the cumulative offset of all chunks
// before it, and the offset then advances by the recognizer's AdvancePolicy.
// The ledger is rewritten after every chunk, so a failed or interrupted run
// resumes at the first unfinished chunk. Recognizer errors are not retried.
package transcribe
