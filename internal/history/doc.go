// Package history records transcription runs in a SQLite database
// (modernc.org/sqlite, no cgo).
//
// The job runner inserts a running row before chunking and finishes it with
// the outcome; "chunkvtt history" lists the rows. Schema changes ship as
// embedded migrations applied on Open.
package history
