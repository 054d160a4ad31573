package location

import (
	"regexp"
	"strings"
)

// cityPattern rows are tried in order; the first match wins. Keeping the
// cascade as data makes adding a language or phrasing a one-line change.
type cityPattern struct {
	lang  string
	re    *regexp.Regexp
	group int
}

// jpChars covers hiragana, katakana, CJK ideographs (including extension A),
// halfwidth/fullwidth forms, plus Latin letters and spaces for mixed-script
// city names.
const jpChars = `\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}\x{3400}-\x{4DBF}\x{FF00}-\x{FFEF}A-Za-z\s`

var cityPatterns = []cityPattern{
	// "〇〇の天気" / "〇〇はどんな天気"
	{lang: "ja", re: regexp.MustCompile(`([` + jpChars + `]+?)(?:の天気|はどんな天気)`), group: 1},
	// "weather in/for X"
	{lang: "en", re: regexp.MustCompile(`(?i)weather\s+(?:in|for)\s+([A-Za-z\s]+)`), group: 1},
	// "X's weather"
	{lang: "en", re: regexp.MustCompile(`(?i)([A-Za-z\s]+)'s\s+weather`), group: 1},
}

// ExtractCity finds a city name in free text using language-aware patterns.
// It is a pure function: deterministic, total on arbitrary input, and ""
// when nothing matches.
func ExtractCity(text string) string {
	if text == "" {
		return ""
	}
	for _, p := range cityPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if city := strings.TrimSpace(m[p.group]); city != "" {
			return city
		}
	}
	return ""
}
