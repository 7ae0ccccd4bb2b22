// Package images optionally attaches one image per slide. Image search is
// strictly best-effort: provider outages degrade to slides without images,
// and an authorization or quota failure stops the search for the rest of the
// generation instead of burning the remaining calls.
package images

import (
	"context"
	"log/slog"
	"strings"

	"deckforge/pkg/ai"
	"deckforge/pkg/domain"
)

// maxQueryLen bounds every candidate search query.
const maxQueryLen = 100

// SearchClient is one image provider bound to a single API key.
type SearchClient interface {
	// Search returns an image URL for the query, empty when nothing matched.
	Search(ctx context.Context, query, locale string) (string, error)
}

// QueryRewriter produces an AI-corrected, locale-aware search query.
// The content generator implements it with the same provider cascade used
// for slides.
type QueryRewriter interface {
	RewriteImageQuery(ctx context.Context, topic, slideTitle, language string) (string, error)
}

// Enricher runs the per-slide image search cascade.
type Enricher struct {
	providers []SearchClient
	rewriter  QueryRewriter
	log       *slog.Logger
	inline    func(ctx context.Context, url string) string
}

// NewEnricher wires the provider keys in rotation order. rewriter may be nil.
func NewEnricher(providers []SearchClient, rewriter QueryRewriter, log *slog.Logger) *Enricher {
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{providers: providers, rewriter: rewriter, log: log, inline: inlineImage}
}

// NewPexelsClients builds one search client per configured key.
func NewPexelsClients(keys []string) ([]SearchClient, error) {
	clients := make([]SearchClient, 0, len(keys))
	for _, key := range keys {
		c, err := NewPexelsClient(key)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// Enrich attaches images to the slides in place. It never fails; slides
// without an image are a normal outcome.
func (e *Enricher) Enrich(ctx context.Context, topic, language string, slides []domain.Slide) {
	if e == nil || len(e.providers) == 0 {
		return
	}
	for i := range slides {
		url, halt := e.findImage(ctx, topic, language, slides[i].Title)
		if url != "" {
			slides[i].Image = e.inline(ctx, url)
		}
		if halt {
			// Authorization or quota failure: every further call would
			// fail the same way, so the remaining slides stay bare.
			e.log.Warn("image search halted for remaining slides", "slide", i+1, "total", len(slides))
			return
		}
	}
}

// findImage tries the candidate queries in order across every key. The
// second return value requests a halt of the whole generation's search.
func (e *Enricher) findImage(ctx context.Context, topic, language, slideTitle string) (string, bool) {
	for _, query := range e.candidateQueries(ctx, topic, language, slideTitle) {
		for _, provider := range e.providers {
			url, err := provider.Search(ctx, query, language)
			if err != nil {
				switch ai.Classify(err) {
				case ai.ErrClassKeyInvalid, ai.ErrClassPermission:
					e.log.Warn("image provider rejected credentials", "query", query, "err", err)
					return "", true
				default:
					e.log.Info("image search attempt failed", "query", query, "err", err)
				}
				// Generic failure: move on to the next candidate query.
				break
			}
			if url != "" {
				return url, false
			}
		}
	}
	return "", false
}

// candidateQueries builds the ordered, deduplicated list of up to four
// search queries for one slide.
func (e *Enricher) candidateQueries(ctx context.Context, topic, language, slideTitle string) []string {
	var raw []string
	if e.rewriter != nil {
		if rewritten, err := e.rewriter.RewriteImageQuery(ctx, topic, slideTitle, language); err == nil {
			raw = append(raw, rewritten)
		} else {
			e.log.Info("image query rewrite failed, using heuristics", "err", err)
		}
	}
	raw = append(raw, strings.TrimSpace(topic+" "+slideTitle), slideTitle, topic)

	seen := make(map[string]bool, len(raw))
	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		q = truncateQuery(strings.TrimSpace(q))
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	return queries
}

func truncateQuery(q string) string {
	runes := []rune(q)
	if len(runes) <= maxQueryLen {
		return q
	}
	return string(runes[:maxQueryLen])
}
