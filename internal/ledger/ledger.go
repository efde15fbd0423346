package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"chunkvtt/internal/caption"
	"chunkvtt/internal/fileutil"
)

// SchemaVersion is the ledger format written by Save.
const SchemaVersion = 1

// ErrCorrupt reports a ledger file that exists but cannot be trusted.
var ErrCorrupt = errors.New("corrupt ledger")

// JobInfo describes the run that produced a ledger. It is informational:
// resume never depends on it.
type JobInfo struct {
	Source       string    `json:"source,omitempty"`
	ChunkSeconds int       `json:"chunk_seconds,omitempty"`
	ChunkCount   int       `json:"chunk_count,omitempty"`
	Recognizer   string    `json:"recognizer,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// State is the resumable progress of one transcription job.
type State struct {
	SchemaVersion int
	// TotalSeconds is the cumulative offset: where the next chunk starts on
	// the global timeline.
	TotalSeconds float64
	Captions     []caption.Caption
	// CompletedChunks lists every chunk folded into the state, including
	// chunks that produced no captions. Absent in legacy ledgers.
	CompletedChunks []string
	Job             *JobInfo
}

// Empty returns the state of a job that has not processed any chunk.
func Empty() State {
	return State{SchemaVersion: SchemaVersion, Captions: []caption.Caption{}}
}

// DoneChunks returns the set of chunk identifiers already folded into s.
func (s State) DoneChunks() map[string]struct{} {
	done := make(map[string]struct{}, len(s.CompletedChunks)+len(s.Captions))
	for _, id := range s.CompletedChunks {
		done[id] = struct{}{}
	}
	for _, c := range s.Captions {
		if c.SourceChunk != "" {
			done[c.SourceChunk] = struct{}{}
		}
	}
	return done
}

// IsEmpty reports whether no progress has been recorded.
func (s State) IsEmpty() bool {
	return s.TotalSeconds == 0 && len(s.Captions) == 0 && len(s.CompletedChunks) == 0
}

type fileCaption struct {
	StartSeconds *float64 `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds"`
	Text         *string  `json:"text"`
	WavFile      *string  `json:"wav_file"`
}

type fileState struct {
	SchemaVersion   *int           `json:"schema_version,omitempty"`
	TotalSeconds    *float64       `json:"total_seconds"`
	Captions        *[]fileCaption `json:"captions"`
	CompletedChunks []string       `json:"completed_chunks,omitempty"`
	Job             *JobInfo       `json:"job,omitempty"`
}

// Load reads the ledger at path. A missing file yields Empty(). Any file that
// cannot be decoded into a complete, consistent state returns an error
// wrapping ErrCorrupt. Ledgers without schema_version are read as version 1.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Empty(), nil
		}
		return State{}, fmt.Errorf("read ledger %s: %w", path, err)
	}
	state, err := decode(data)
	if err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return state, nil
}

func decode(data []byte) (State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return State{}, errors.New("file is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw fileState
	if err := dec.Decode(&raw); err != nil {
		return State{}, err
	}
	if dec.More() {
		return State{}, errors.New("trailing data after ledger object")
	}

	version := SchemaVersion
	if raw.SchemaVersion != nil {
		version = *raw.SchemaVersion
	}
	if version < 1 || version > SchemaVersion {
		return State{}, fmt.Errorf("unsupported schema version %d (supported: %d)", version, SchemaVersion)
	}
	if raw.TotalSeconds == nil {
		return State{}, errors.New("missing total_seconds")
	}
	if *raw.TotalSeconds < 0 {
		return State{}, fmt.Errorf("negative total_seconds %v", *raw.TotalSeconds)
	}
	if raw.Captions == nil {
		return State{}, errors.New("missing captions")
	}

	state := State{
		SchemaVersion: SchemaVersion,
		TotalSeconds:  *raw.TotalSeconds,
		Captions:      make([]caption.Caption, 0, len(*raw.Captions)),
		Job:           raw.Job,
	}
	for i, fc := range *raw.Captions {
		switch {
		case fc.StartSeconds == nil:
			return State{}, fmt.Errorf("caption %d: missing start_seconds", i+1)
		case fc.EndSeconds == nil:
			return State{}, fmt.Errorf("caption %d: missing end_seconds", i+1)
		case fc.Text == nil:
			return State{}, fmt.Errorf("caption %d: missing text", i+1)
		case fc.WavFile == nil:
			return State{}, fmt.Errorf("caption %d: missing wav_file", i+1)
		case *fc.StartSeconds < 0:
			return State{}, fmt.Errorf("caption %d: negative start_seconds", i+1)
		case *fc.EndSeconds < *fc.StartSeconds:
			return State{}, fmt.Errorf("caption %d: end_seconds before start_seconds", i+1)
		}
		state.Captions = append(state.Captions, caption.Caption{
			Start:       *fc.StartSeconds,
			End:         *fc.EndSeconds,
			Text:        *fc.Text,
			SourceChunk: *fc.WavFile,
		})
	}
	if len(raw.CompletedChunks) > 0 {
		state.CompletedChunks = raw.CompletedChunks
	}
	return state, nil
}

// Save atomically replaces the ledger at path with the full state. The
// previous snapshot stays intact until the new one is completely on disk.
func Save(path string, state State) error {
	data, err := encode(state)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save ledger %s: %w", path, err)
	}
	return nil
}

func encode(state State) ([]byte, error) {
	version := SchemaVersion
	total := state.TotalSeconds
	captions := make([]fileCaption, len(state.Captions))
	for i := range state.Captions {
		c := &state.Captions[i]
		captions[i] = fileCaption{
			StartSeconds: &c.Start,
			EndSeconds:   &c.End,
			Text:         &c.Text,
			WavFile:      &c.SourceChunk,
		}
	}
	raw := fileState{
		SchemaVersion:   &version,
		TotalSeconds:    &total,
		Captions:        &captions,
		CompletedChunks: state.CompletedChunks,
		Job:             state.Job,
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Discard removes the ledger. A missing ledger is not an error.
func Discard(path string) error {
	if err := fileutil.RemoveIfExists(path); err != nil {
		return fmt.Errorf("discard ledger %s: %w", path, err)
	}
	return nil
}
