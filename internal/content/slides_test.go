package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"deckforge/pkg/ai"
)

// scriptedGenerator returns its responses in order, then errors.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func slidesJSON(n int) string {
	type slide struct {
		Title   string   `json:"title"`
		Summary string   `json:"summary"`
		Bullets []string `json:"bullets"`
	}
	payload := struct {
		Topic  string  `json:"topic"`
		Slides []slide `json:"slides"`
	}{Topic: "Topic"}
	for i := 0; i < n; i++ {
		payload.Slides = append(payload.Slides, slide{
			Title:   fmt.Sprintf("Slide %d", i+1),
			Summary: "A summary.",
			Bullets: []string{"one", "two", "three", "four"},
		})
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestGenerateSlidesHappyPath(t *testing.T) {
	primary := &scriptedGenerator{responses: []string{"```json\n" + slidesJSON(4) + "\n```"}}
	gen := NewGenerator(primary, nil, discard())

	slides := gen.GenerateSlides(context.Background(), Request{Topic: "Go", Language: "en", PageCount: 4})
	if len(slides) != 4 {
		t.Fatalf("expected 4 slides, got %d", len(slides))
	}
	if slides[0].Title != "Slide 1" {
		t.Fatalf("unexpected title %q", slides[0].Title)
	}
	if !strings.Contains(slides[0].BodyHTML, "<ul>") {
		t.Fatalf("body html missing list: %q", slides[0].BodyHTML)
	}
}

func TestGenerateSlidesFallsBackDeterministically(t *testing.T) {
	// Primary fails outright, secondary answers with the wrong slide count.
	primary := &scriptedGenerator{err: errors.New("upstream down")}
	secondary := &scriptedGenerator{responses: []string{slidesJSON(3)}}
	gen := NewGenerator(primary, []ai.TextGenerator{secondary}, discard())

	slides := gen.GenerateSlides(context.Background(), Request{Topic: "Climate policy", Language: "en", PageCount: 6})
	if len(slides) != 6 {
		t.Fatalf("fallback must produce exactly 6 slides, got %d", len(slides))
	}
	pack := localeFor("en")
	for i, s := range slides {
		if s.Title != pack.Fallback[i].Title {
			t.Fatalf("slide %d title = %q, want fallback section %q", i, s.Title, pack.Fallback[i].Title)
		}
		if len(s.Bullets) == 0 {
			t.Fatalf("fallback slide %d has no bullets", i)
		}
	}
}

func TestGenerateSlidesFallbackPadsPastSectionList(t *testing.T) {
	gen := NewGenerator(nil, nil, discard())
	pack := localeFor("ru")

	slides := gen.GenerateSlides(context.Background(), Request{Topic: "тема", Language: "ru", PageCount: 12})
	if len(slides) != 12 {
		t.Fatalf("expected 12 slides, got %d", len(slides))
	}
	if slides[0].Title != pack.Fallback[0].Title {
		t.Fatalf("slide 0 title = %q", slides[0].Title)
	}
	want := fmt.Sprintf("%s 11", pack.SectionLabel)
	if slides[10].Title != want {
		t.Fatalf("padded slide title = %q, want %q", slides[10].Title, want)
	}
}

func TestGenerateSlidesRotatesSecondaryKeys(t *testing.T) {
	badKey := &scriptedGenerator{err: &ai.ProviderError{Provider: "openai", Status: 401, Class: ai.ErrClassKeyInvalid}}
	goodKey := &scriptedGenerator{responses: []string{slidesJSON(2)}}
	gen := NewGenerator(nil, []ai.TextGenerator{badKey, goodKey}, discard())

	slides := gen.GenerateSlides(context.Background(), Request{Topic: "Go", Language: "en", PageCount: 2})
	if badKey.calls != 1 || goodKey.calls != 1 {
		t.Fatalf("expected key rotation, calls: bad=%d good=%d", badKey.calls, goodKey.calls)
	}
	if slides[0].Title != "Slide 1" {
		t.Fatalf("expected provider content after rotation, got %q", slides[0].Title)
	}
}

func TestNormalizeSlideAppliesShapeRules(t *testing.T) {
	pack := localeFor("en")
	slide := normalizeSlide(rawSlide{
		Title:   "   ",
		Summary: "",
		Bullets: []any{"keep", 42, "", "also keep", true, "three", "four", "five", "six"},
	}, 1, pack)

	if slide.Title != "Section 2" {
		t.Fatalf("placeholder title = %q", slide.Title)
	}
	if slide.Summary != pack.DefaultSummary {
		t.Fatalf("default summary = %q", slide.Summary)
	}
	if len(slide.Bullets) != maxBulletsPerSlide {
		t.Fatalf("bullets capped at %d, got %d: %v", maxBulletsPerSlide, len(slide.Bullets), slide.Bullets)
	}
	for _, b := range slide.Bullets {
		if b == "" {
			t.Fatalf("blank bullet survived normalization")
		}
	}
}

func TestNormalizeSlideReplacesEmptyBullets(t *testing.T) {
	pack := localeFor("en")
	slide := normalizeSlide(rawSlide{Title: "T", Summary: "S", Bullets: []any{3.14, nil}}, 0, pack)
	if len(slide.Bullets) != len(pack.DefaultBullets) {
		t.Fatalf("expected default bullets, got %v", slide.Bullets)
	}
}

func TestBodyHTMLEscapesProviderText(t *testing.T) {
	out := bodyHTML(`<script>alert("x")</script>`, []string{`a < b & c`})
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html passed through: %q", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") || !strings.Contains(out, "a &lt; b &amp; c") {
		t.Fatalf("expected escaped text, got %q", out)
	}
}

func TestNormalizeTopicFallsBackToTrimmedInput(t *testing.T) {
	primary := &scriptedGenerator{err: errors.New("down")}
	gen := NewGenerator(primary, nil, discard())

	got := gen.NormalizeTopic(context.Background(), "  climate policy  ", "en")
	if got != "climate policy" {
		t.Fatalf("normalized topic = %q", got)
	}
}

func TestNormalizeTopicUsesProviderAnswer(t *testing.T) {
	primary := &scriptedGenerator{responses: []string{"\"Climate Policy\"\n"}}
	gen := NewGenerator(primary, nil, discard())

	got := gen.NormalizeTopic(context.Background(), "climat policy", "en")
	if got != "Climate Policy" {
		t.Fatalf("normalized topic = %q", got)
	}
}
