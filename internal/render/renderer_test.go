package render

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"deckforge/pkg/domain"
)

func TestHTMLRendererWritesDeck(t *testing.T) {
	r, err := NewHTMLRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	deck := domain.Deck{
		Topic:       "Climate policy",
		Language:    "en",
		TemplateID:  2,
		GeneratedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Slides: []domain.Slide{
			{Title: "Intro", BodyHTML: "<p>Hello &lt;world&gt;</p><ul><li>a</li></ul>"},
			{Title: "Second", BodyHTML: "<p>More</p>", Image: "data:image/png;base64,AAAA"},
		},
	}

	path, err := r.Render(context.Background(), deck)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	defer os.Remove(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read deck: %v", err)
	}
	out := string(raw)
	for _, want := range []string{
		"Climate policy",
		"<h2>Intro</h2>",
		"Hello &lt;world&gt;",
		`src="data:image/png;base64,AAAA"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered deck missing %q", want)
		}
	}
}

func TestHTMLRendererUnknownTemplateFallsBack(t *testing.T) {
	r, err := NewHTMLRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	path, err := r.Render(context.Background(), domain.Deck{
		Topic:      "T",
		TemplateID: 99,
		Slides:     []domain.Slide{{Title: "S", BodyHTML: "<p>x</p>"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	defer os.Remove(path)
}
