package caption

import (
	"fmt"
	"math"
)

// Caption is one timestamped text segment on the global timeline of the
// source asset. SourceChunk records the chunk that produced it and is used
// only for resume bookkeeping.
type Caption struct {
	Start       float64
	End         float64
	Text        string
	SourceChunk string
}

// Duration returns the caption length in seconds.
func (c Caption) Duration() float64 {
	return c.End - c.Start
}

// Validate checks a caption list for ordering and range problems and returns
// one entry per issue found. An empty result means the list is well formed.
// When totalSeconds is positive, captions ending well past it are reported.
func Validate(captions []Caption, totalSeconds float64) []string {
	var issues []string
	prevStart := math.Inf(-1)
	for i, c := range captions {
		switch {
		case c.Start < 0:
			issues = append(issues, fmt.Sprintf("caption %d: negative start %.3f", i+1, c.Start))
		case c.End < c.Start:
			issues = append(issues, fmt.Sprintf("caption %d: end %.3f before start %.3f", i+1, c.End, c.Start))
		}
		if c.Start < prevStart {
			issues = append(issues, fmt.Sprintf("caption %d: start %.3f precedes previous start %.3f", i+1, c.Start, prevStart))
		}
		prevStart = c.Start
	}
	if totalSeconds > 0 && len(captions) > 0 {
		if last := captions[len(captions)-1].End; last > totalSeconds+1 {
			issues = append(issues, fmt.Sprintf("last caption ends at %.3f beyond timeline %.3f", last, totalSeconds))
		}
	}
	return issues
}
