// Package preflight provides readiness checks for the executables, devices
// and filesystem paths a transcription job depends on.
//
// These checks run in two contexts:
//   - The job runner calls RunAll before chunking. If any check fails, the
//     job stops before hours of recognizer time are spent on a doomed run.
//   - The CLI "chunkvtt check" command renders the same results, plus an
//     optional OpenAI reachability check, as a status table.
package preflight
