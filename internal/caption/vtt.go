package caption

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"chunkvtt/internal/fileutil"
)

const (
	vttHeader    = "WEBVTT"
	cueSeparator = " --> "
)

// FormatTimestamp renders seconds as HH:MM:SS.mmm. Components are truncated,
// never rounded, and hours are unbounded (zero-padded to two digits). The
// product is nudged up by a single ulp before flooring so a millisecond count
// that lands one ulp short of an integer still truncates to that integer.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Floor(math.Nextafter(seconds*1000, math.Inf(1))))
	ms := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	h := totalSeconds / 3600
	m := (totalSeconds / 60) % 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// ParseTimestamp parses HH:MM:SS.mmm (or MM:SS.mmm) back into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, frac, ok := strings.Cut(value, ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	parts := strings.Split(clock, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.Atoi(parts[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil || minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := int64(hours)*3600 + int64(minutes)*60 + int64(seconds)
	return float64(total*1000+int64(millis)) / 1000, nil
}

// WriteVTT renders captions as a WebVTT document in the given order.
func WriteVTT(w io.Writer, captions []Caption) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(vttHeader + "\n\n"); err != nil {
		return err
	}
	for _, c := range captions {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n%s\n\n", FormatTimestamp(c.Start), cueSeparator, FormatTimestamp(c.End), c.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteVTTFile atomically replaces path with the rendered captions.
func WriteVTTFile(path string, captions []Caption) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteVTT(w, captions)
	})
}

// ReadVTT parses a WebVTT document produced by WriteVTT. Cue identifiers,
// settings after the end timestamp, and NOTE blocks are tolerated; multi-line
// cue text is joined with newlines.
func ReadVTT(r io.Reader) ([]Caption, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing %s header", vttHeader)
	}
	lineNo++
	if header := strings.TrimPrefix(scanner.Text(), "\ufeff"); !strings.HasPrefix(header, vttHeader) {
		return nil, fmt.Errorf("line 1: missing %s header", vttHeader)
	}

	var (
		captions []Caption
		current  *Caption
		text     []string
		inNote   bool
	)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(text, "\n")
			captions = append(captions, *current)
		}
		current = nil
		text = nil
		inNote = false
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if inNote {
			continue
		}
		if current == nil && strings.HasPrefix(line, "NOTE") {
			inNote = true
			continue
		}
		if current == nil && strings.Contains(line, cueSeparator) {
			startText, rest, _ := strings.Cut(line, cueSeparator)
			endText := rest
			if fields := strings.Fields(rest); len(fields) > 0 {
				endText = fields[0]
			}
			start, err := ParseTimestamp(startText)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			end, err := ParseTimestamp(endText)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &Caption{Start: start, End: end}
			continue
		}
		if current == nil {
			// cue identifier
			continue
		}
		text = append(text, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return captions, nil
}

// ReadVTTFile parses the WebVTT file at path.
func ReadVTTFile(path string) ([]Caption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadVTT(f)
}
