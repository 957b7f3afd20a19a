package synth

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLineHeight applies to languages missing from the table.
const DefaultLineHeight = 1.1

var lineHeights = map[string]float64{
	"zh": 1.4,
	"ja": 1.1,
	"ko": 1.2,
	"en": 1.2,
	"ar": 1.0,
	"ru": 0.8,
	"uk": 0.8,
	"ta": 0.8,
}

// LineHeight returns the line spacing multiplier for a target language
// tag such as "zh-CN" or "ru".
func LineHeight(lang string) float64 {
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return DefaultLineHeight
	}
	base, _ := tag.Base()
	if h, ok := lineHeights[base.String()]; ok {
		return h
	}
	return DefaultLineHeight
}
