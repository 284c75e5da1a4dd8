package llm

import (
	"encoding/json"
	"errors"
	"regexp"
)

var (
	objectPattern     = regexp.MustCompile(`\{[\s\S]*\}`)
	duplicateCommas   = regexp.MustCompile(`,\s*,+`)
	errNoJSONObject   = errors.New("reply contains no JSON object")
	errMissingMatches = errors.New(`reply is missing the "matches" list`)
)

// extractJSON decodes the outermost {...} block of a model reply into out.
// Replies often wrap JSON in prose or code fences, and some models emit
// doubled commas, so a second attempt collapses those before giving up.
func extractJSON(text string, out any) error {
	candidate := objectPattern.FindString(text)
	if candidate == "" {
		return errNoJSONObject
	}
	err := json.Unmarshal([]byte(candidate), out)
	if err == nil {
		return nil
	}
	fixed := duplicateCommas.ReplaceAllString(candidate, ",")
	if fixed == candidate {
		return err
	}
	return json.Unmarshal([]byte(fixed), out)
}
