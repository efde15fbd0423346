package main

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/cobra"

	"chunkvtt/internal/caption"
)

// writeJSON encodes v as indented JSON to the command's stdout. HTML escaping
// is off so caption text keeps its angle brackets and ampersands.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// captionJSON is the machine-readable form of one cue. Timestamps are given
// both as seconds and in VTT notation.
type captionJSON struct {
	Index        int     `json:"index"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Chunk        string  `json:"chunk,omitempty"`
	Text         string  `json:"text"`
}

// captionsJSON converts captions whose first element is cue number offset+1.
func captionsJSON(captions []caption.Caption, offset int) []captionJSON {
	out := make([]captionJSON, 0, len(captions))
	for i, c := range captions {
		entry := captionJSON{
			Index:        offset + i + 1,
			Start:        timestampCell(c.Start),
			End:          timestampCell(c.End),
			StartSeconds: c.Start,
			EndSeconds:   c.End,
			Text:         c.Text,
		}
		if c.SourceChunk != "" {
			entry.Chunk = filepath.Base(c.SourceChunk)
		}
		out = append(out, entry)
	}
	return out
}
