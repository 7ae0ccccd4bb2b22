// Package content turns a free-form topic into a fixed number of well-formed
// slides. Both phases (topic normalization, slide generation) cascade over a
// primary single-key provider and a secondary multi-key provider; total
// provider failure degrades to deterministic localized fallback content, so
// the package never returns an error to its caller.
package content

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"deckforge/internal/cascade"
	"deckforge/pkg/ai"
	"deckforge/pkg/domain"
)

const maxBulletsPerSlide = 5

// Request holds everything the slide generator needs for one deck.
type Request struct {
	Topic     string
	Language  string
	Audience  string
	Role      string
	Goal      string
	Tone      string
	PageCount int
}

// Generator runs the content cascades. Either provider list may be empty;
// the fallback deck covers the all-empty case.
type Generator struct {
	primary   ai.TextGenerator
	secondary []ai.TextGenerator
	log       *slog.Logger
}

// NewGenerator wires the provider tiers. primary may be nil, secondary holds
// one generator per configured key, in rotation order.
func NewGenerator(primary ai.TextGenerator, secondary []ai.TextGenerator, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{primary: primary, secondary: secondary, log: log}
}

// textTiers builds the standard two-tier cascade for a plain text exchange.
func (g *Generator) textTiers(systemPrompt, userPrompt string) []cascade.Tier[string] {
	var tiers []cascade.Tier[string]
	if g.primary != nil {
		gen := g.primary
		tiers = append(tiers, cascade.Tier[string]{
			Name: "primary",
			Attempts: []cascade.Attempt[string]{func(ctx context.Context) (string, error) {
				return gen.GenerateText(ctx, systemPrompt, userPrompt)
			}},
		})
	}
	if len(g.secondary) > 0 {
		attempts := make([]cascade.Attempt[string], 0, len(g.secondary))
		for _, gen := range g.secondary {
			gen := gen
			attempts = append(attempts, func(ctx context.Context) (string, error) {
				return gen.GenerateText(ctx, systemPrompt, userPrompt)
			})
		}
		tiers = append(tiers, cascade.Tier[string]{Name: "secondary", Attempts: attempts})
	}
	return tiers
}

// NormalizeTopic corrects spelling and transliteration noise and translates
// the topic into the target language. It never fails: when every provider is
// out, the trimmed raw input is the normalized topic.
func (g *Generator) NormalizeTopic(ctx context.Context, topic, language string) string {
	raw := strings.TrimSpace(topic)
	out, err := cascade.Run(ctx, g.log, g.textTiers(topicSystemPrompt, topicUserPrompt(raw, language)))
	if err != nil {
		g.log.Info("topic normalization fell back to raw input", "err", err)
		return raw
	}
	clean := strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if clean == "" {
		return raw
	}
	return clean
}

// GenerateSlides produces exactly req.PageCount normalized slides. An attempt
// whose parsed slide count differs from the requested page count fails that
// attempt; when every attempt fails the localized fallback deck is used.
func (g *Generator) GenerateSlides(ctx context.Context, req Request) []domain.Slide {
	userPrompt := slidesUserPrompt(req)
	attempt := func(gen ai.TextGenerator) cascade.Attempt[[]rawSlide] {
		return func(ctx context.Context) ([]rawSlide, error) {
			text, err := gen.GenerateText(ctx, slidesSystemPrompt, userPrompt)
			if err != nil {
				return nil, err
			}
			resp, err := parseSlidesResponse(text)
			if err != nil {
				return nil, err
			}
			if len(resp.Slides) != req.PageCount {
				return nil, fmt.Errorf("expected %d slides, got %d", req.PageCount, len(resp.Slides))
			}
			return resp.Slides, nil
		}
	}

	var tiers []cascade.Tier[[]rawSlide]
	if g.primary != nil {
		tiers = append(tiers, cascade.Tier[[]rawSlide]{
			Name:     "primary",
			Attempts: []cascade.Attempt[[]rawSlide]{attempt(g.primary)},
		})
	}
	if len(g.secondary) > 0 {
		attempts := make([]cascade.Attempt[[]rawSlide], 0, len(g.secondary))
		for _, gen := range g.secondary {
			attempts = append(attempts, attempt(gen))
		}
		tiers = append(tiers, cascade.Tier[[]rawSlide]{Name: "secondary", Attempts: attempts})
	}

	pack := localeFor(req.Language)
	raw, err := cascade.Run(ctx, g.log, tiers)
	if err != nil {
		g.log.Warn("slide generation exhausted all providers, using fallback deck",
			"language", req.Language, "pages", req.PageCount, "err", err)
		raw = fallbackSlides(pack, req.PageCount)
	}

	slides := make([]domain.Slide, 0, len(raw))
	for i, rs := range raw {
		slides = append(slides, normalizeSlide(rs, i, pack))
	}
	return slides
}

// Generate runs both phases and returns the normalized topic with the slides.
func (g *Generator) Generate(ctx context.Context, req Request) (string, []domain.Slide) {
	topic := g.NormalizeTopic(ctx, req.Topic, req.Language)
	req.Topic = topic
	return topic, g.GenerateSlides(ctx, req)
}

// RewriteImageQuery asks the provider cascade for a locale-aware image search
// query. Unlike the other phases it surfaces exhaustion, so the image
// enricher can fall back to its heuristic query.
func (g *Generator) RewriteImageQuery(ctx context.Context, topic, slideTitle, language string) (string, error) {
	out, err := cascade.Run(ctx, g.log, g.textTiers(imageQuerySystemPrompt, imageQueryUserPrompt(topic, slideTitle, language)))
	if err != nil {
		return "", err
	}
	clean := strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if clean == "" {
		return "", fmt.Errorf("empty image query")
	}
	return clean, nil
}

// normalizeSlide enforces the shape contract on a single slide regardless of
// where it came from.
func normalizeSlide(rs rawSlide, index int, pack localePack) domain.Slide {
	title := strings.TrimSpace(rs.Title)
	if title == "" {
		title = fmt.Sprintf("%s %d", pack.SectionLabel, index+1)
	}
	summary := strings.TrimSpace(rs.Summary)
	if summary == "" {
		summary = pack.DefaultSummary
	}
	bullets := make([]string, 0, maxBulletsPerSlide)
	for _, b := range rs.Bullets {
		s, ok := b.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		bullets = append(bullets, s)
		if len(bullets) == maxBulletsPerSlide {
			break
		}
	}
	if len(bullets) == 0 {
		bullets = append(bullets, pack.DefaultBullets...)
	}
	return domain.Slide{
		Title:    title,
		Summary:  summary,
		Bullets:  bullets,
		BodyHTML: bodyHTML(summary, bullets),
	}
}

// bodyHTML wraps escaped summary and bullets in minimal markup. Provider
// text is never passed through as HTML.
func bodyHTML(summary string, bullets []string) string {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(html.EscapeString(summary))
	b.WriteString("</p><ul>")
	for _, bullet := range bullets {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(bullet))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
