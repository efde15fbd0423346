// Package ledger persists the resumable progress of a transcription job.
//
// The ledger is a JSON document holding the cumulative timeline offset, every
// caption produced so far, and the chunks already processed. Save replaces it
// atomically after each chunk so a crash at any point leaves the last
// complete snapshot on disk. Load rejects anything it cannot fully trust with
// ErrCorrupt, and AcquireLock keeps two runs from driving the same ledger.
//
// Files written before schema_version existed (only total_seconds and
// captions) still load.
package ledger
