package location

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/aetheria/aetheria/internal/session"
)

// phrasePatterns catch location mentions the primary extractor misses:
// travel statements and bare "<place> weather" phrasings. Applied to user
// turns only, after ExtractCity.
var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:in|to|from|at)\s+([A-Za-z\s]+?)\s+(?:tomorrow|today|yesterday|next|last|this)`),
	regexp.MustCompile(`(?i)(?:going to|visiting|traveling to|will be in)\s+([A-Za-z\s]+)`),
	regexp.MustCompile(`(?i)([A-Za-z\s]+)\s+(?:weather|forecast|climate)`),
}

// modelPayload is the subset of a stored model turn the scanner cares about.
type modelPayload struct {
	Weather *struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"weather"`
}

// LastCityInHistory walks the history newest-to-oldest and returns the most
// recently mentioned or resolved location. Model turns carry the resolved
// weather location inside their serialized payload; user turns are re-run
// through the extractor and phrase patterns. A malformed entry is skipped,
// never fatal. Returns "" when the whole history is silent.
func LastCityInHistory(history []session.Turn, logger *zap.Logger) string {
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]

		switch turn.Role {
		case session.RoleModel:
			var payload modelPayload
			if err := json.Unmarshal([]byte(turn.Content), &payload); err != nil {
				if logger != nil {
					logger.Debug("Skipping unparseable model turn in history scan",
						zap.Int("index", i), zap.Error(err))
				}
				continue
			}
			if payload.Weather != nil && payload.Weather.Location.Name != "" {
				return payload.Weather.Location.Name
			}

		case session.RoleUser:
			if city := ExtractCity(turn.Content); city != "" {
				return city
			}
			for _, re := range phrasePatterns {
				m := re.FindStringSubmatch(turn.Content)
				if m == nil {
					continue
				}
				city := strings.TrimSpace(m[1])
				// Very short fragments are noise ("to NY tomorrow" is fine,
				// a stray two-letter preposition capture is not).
				if len([]rune(city)) > 2 {
					return city
				}
			}
		}
	}
	return ""
}
