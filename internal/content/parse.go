package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

type slidesResponse struct {
	Topic  string     `json:"topic"`
	Slides []rawSlide `json:"slides"`
}

// rawSlide tolerates sloppy provider output: bullets arrive as any JSON
// values and non-strings are filtered during normalization.
type rawSlide struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Bullets []any  `json:"bullets"`
}

// extractJSON strips markdown code fences and surrounding prose, leaving the
// outermost JSON object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func parseSlidesResponse(text string) (slidesResponse, error) {
	var resp slidesResponse
	payload := extractJSON(text)
	if payload == "" {
		return resp, fmt.Errorf("no json object in response")
	}
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return resp, fmt.Errorf("parse slides response: %w", err)
	}
	if len(resp.Slides) == 0 {
		return resp, fmt.Errorf("response contains no slides")
	}
	return resp, nil
}
