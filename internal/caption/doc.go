// Package caption defines the Caption type and its WebVTT rendering.
//
// WriteVTT produces a byte-exact document: a "WEBVTT" header followed by one
// block per caption with truncated HH:MM:SS.mmm timestamps. ReadVTT parses the
// same format back for verification and tooling.
package caption
