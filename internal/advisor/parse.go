package advisor

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoTips is returned when model output contains no suggestions.
var ErrNoTips = errors.New("no tips in advisor output")

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// ParseTips extracts suggestions from model output.
//
// Output is expected to be a JSON array of strings, possibly wrapped in a markdown code fence.
// Otherwise non-empty lines are used with list markers trimmed.
func ParseTips(content string) ([]string, error) {
	content = stripFence(strings.TrimSpace(content))

	var tips []string
	if err := json.Unmarshal([]byte(content), &tips); err == nil {
		return compact(tips)
	}

	tips = tips[:0]

	for _, line := range strings.Split(content, "\n") {
		tips = append(tips, listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
	}

	return compact(tips)
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // Language tag.
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func compact(tips []string) ([]string, error) {
	res := tips[:0]

	for _, t := range tips {
		if t = strings.TrimSpace(t); t != "" {
			res = append(res, t)
		}
	}

	if len(res) == 0 {
		return nil, ErrNoTips
	}

	return res, nil
}
