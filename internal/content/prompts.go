package content

import (
	"fmt"
	"strings"
)

const topicSystemPrompt = `You fix presentation topics. Correct spelling and
transliteration noise in the topic and translate it into the requested
language. Reply with the corrected topic only, no quotes, no commentary.`

func topicUserPrompt(topic, language string) string {
	return fmt.Sprintf("Language: %s\nTopic: %s", language, strings.TrimSpace(topic))
}

const slidesSystemPrompt = `You write structured presentation content. Respond
with a single JSON object and nothing else, shaped exactly as:
{"topic": "...", "slides": [{"title": "...", "summary": "...", "bullets": ["...", "...", "...", "..."]}]}
Every slide has a short title, a two-sentence summary and exactly 4 bullets.
Write all text in the requested language.`

func slidesUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Number of slides: %d\n", req.PageCount)
	if req.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", req.Audience)
	}
	if req.Role != "" {
		fmt.Fprintf(&b, "Presenter role: %s\n", req.Role)
	}
	if req.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", req.Goal)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	fmt.Fprintf(&b, "Produce exactly %d slides.", req.PageCount)
	return b.String()
}

const imageQuerySystemPrompt = `You write short image search queries. Given a
presentation topic and a slide title, reply with one concise stock-photo
search query in the requested language. Reply with the query only.`

func imageQueryUserPrompt(topic, slideTitle, language string) string {
	return fmt.Sprintf("Language: %s\nTopic: %s\nSlide: %s", language, topic, slideTitle)
}
