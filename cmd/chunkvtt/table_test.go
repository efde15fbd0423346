package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"chunkvtt/internal/caption"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]column{right("#"), left("Chunk"), left("Text")},
		[][]string{{"1", "speech-001.wav"}},
		"",
	)
	var row string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "speech-001.wav") {
			row = line
		}
	}
	if got := strings.Count(row, "│"); got != 4 {
		t.Fatalf("expected three cells in row %q, got %d separators", row, got)
	}
	if renderTable(nil, [][]string{{"x"}}, "") != "" {
		t.Fatal("expected empty output without columns")
	}
}

func TestRenderCaptionTableFooter(t *testing.T) {
	captions := []caption.Caption{
		{Start: 3599.5, End: 3601.25, Text: "crossing the hour", SourceChunk: "/work/speech-007.wav"},
	}
	out := renderCaptionTable(captions, 41)
	requireContains(t, out, "42")
	requireContains(t, out, "00:59:59.500")
	requireContains(t, out, "01:00:01.250")
	requireContains(t, out, "last 1 of 42 captions")

	if full := renderCaptionTable(captions, 0); strings.Contains(full, "captions") {
		t.Fatalf("expected no footer when every caption is shown, got\n%s", full)
	}
}

func TestWriteJSONKeepsCaptionMarkup(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	entries := captionsJSON([]caption.Caption{{Start: 1, End: 2, Text: "<i>Tom & Jerry</i>"}}, 0)
	if err := writeJSON(cmd, entries); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	requireContains(t, buf.String(), `"text": "<i>Tom & Jerry</i>"`)
	requireContains(t, buf.String(), `"start": "00:00:01.000"`)
	if strings.Contains(buf.String(), `"chunk"`) {
		t.Fatalf("expected chunk to be omitted, got %s", buf.String())
	}
}
