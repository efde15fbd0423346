package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto requests language detection from the recognizer.
const Auto = "auto"

// bibliographic ISO 639-2/B codes and English word forms that the BCP 47
// parser does not accept.
var aliases = map[string]string{
	"fre":        "fr",
	"ger":        "de",
	"chi":        "zh",
	"dut":        "nl",
	"cze":        "cs",
	"gre":        "el",
	"per":        "fa",
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// IsAuto reports whether value asks for language detection.
func IsAuto(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case Auto, "detect", "und":
		return true
	}
	return false
}

func parseBase(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return language.Base{}, false
	}
	if mapped, ok := aliases[code]; ok {
		code = mapped
	}
	if tag, err := language.Parse(code); err == nil {
		base, conf := tag.Base()
		if conf != language.No && base.String() != "und" {
			return base, true
		}
	}
	return language.Base{}, false
}

// ToISO2 converts any recognized language code, tag, or English word to
// ISO 639-1 (2-letter). Unknown 2-letter input passes through; anything else
// unrecognized returns an empty string.
func ToISO2(code string) string {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return ""
	}
	if base, ok := parseBase(trimmed); ok {
		if s := base.String(); len(s) == 2 {
			return s
		}
		return ""
	}
	if len(trimmed) == 2 {
		return trimmed
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	if base, ok := parseBase(code); ok {
		return base.ISO3()
	}
	return "und"
}

// DisplayName returns the English name for any recognized code. Returns
// "Auto" for detection requests and the uppercased input otherwise.
func DisplayName(code string) string {
	if IsAuto(code) || strings.TrimSpace(code) == "" {
		return "Auto"
	}
	if base, ok := parseBase(code); ok {
		if namer := display.Languages(language.English); namer != nil {
			if name := namer.Name(base); name != "" {
				return name
			}
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
