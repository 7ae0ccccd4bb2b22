// Package render turns generated deck content into a deliverable document.
// The shipped implementation writes a standalone HTML deck; slide bodies
// arrive pre-escaped from the content pipeline.
package render

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"deckforge/pkg/domain"
)

// Renderer produces a document file from a finished deck and returns its
// path. The caller owns the file and deletes it after delivery.
type Renderer interface {
	Render(ctx context.Context, deck domain.Deck) (string, error)
}

// templateThemes maps a template id to a deck theme. Unknown ids fall back
// to the first theme.
var templateThemes = map[int]theme{
	1: {Name: "minimal", Background: "#ffffff", Accent: "#1a73e8", Text: "#202124"},
	2: {Name: "slate", Background: "#0f172a", Accent: "#38bdf8", Text: "#e2e8f0"},
	3: {Name: "warm", Background: "#fffbeb", Accent: "#d97706", Text: "#451a03"},
}

type theme struct {
	Name       string
	Background string
	Accent     string
	Text       string
}

// HTMLRenderer writes decks as single-file HTML documents under dir.
type HTMLRenderer struct {
	dir  string
	tmpl *template.Template
}

// NewHTMLRenderer builds a renderer writing into dir (temp dir when empty).
func NewHTMLRenderer(dir string) (*HTMLRenderer, error) {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	tmpl, err := template.New("deck").Parse(deckTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse deck template: %w", err)
	}
	return &HTMLRenderer{dir: dir, tmpl: tmpl}, nil
}

type deckView struct {
	Topic       string
	GeneratedAt string
	Theme       theme
	Slides      []slideView
}

type slideView struct {
	Number int
	Title  string
	// Body was built by escaping provider text; marking it trusted here
	// does not reintroduce raw provider HTML.
	Body template.HTML
	// Image is either a data URI produced by the image pipeline or a
	// provider URL; template.URL keeps html/template from rejecting the
	// data scheme.
	Image template.URL
}

// Render writes the deck and returns the file path.
func (r *HTMLRenderer) Render(ctx context.Context, deck domain.Deck) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	th, ok := templateThemes[deck.TemplateID]
	if !ok {
		th = templateThemes[1]
	}
	view := deckView{
		Topic:       deck.Topic,
		GeneratedAt: deck.GeneratedAt.Format("2006-01-02 15:04"),
		Theme:       th,
	}
	for i, slide := range deck.Slides {
		view.Slides = append(view.Slides, slideView{
			Number: i + 1,
			Title:  slide.Title,
			Body:   template.HTML(slide.BodyHTML),
			Image:  template.URL(slide.Image),
		})
	}

	file, err := os.CreateTemp(r.dir, "deck-*.html")
	if err != nil {
		return "", fmt.Errorf("create deck file: %w", err)
	}
	defer file.Close()
	if err := r.tmpl.Execute(file, view); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("render deck: %w", err)
	}
	return filepath.Abs(file.Name())
}

const deckTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Topic}}</title>
<style>
body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
       background: {{.Theme.Background}}; color: {{.Theme.Text}}; }
.slide { min-height: 100vh; box-sizing: border-box; padding: 8vh 10vw;
         page-break-after: always; display: flex; flex-direction: column; }
.slide h2 { color: {{.Theme.Accent}}; font-size: 2.2em; margin: 0 0 0.6em; }
.slide ul { line-height: 1.6; }
.slide img { max-width: 60%; max-height: 40vh; object-fit: cover;
             border-radius: 8px; margin-top: 1.5em; }
.cover { justify-content: center; text-align: center; }
.cover h1 { color: {{.Theme.Accent}}; font-size: 3em; }
.meta { opacity: 0.6; font-size: 0.9em; }
.number { margin-top: auto; opacity: 0.5; align-self: flex-end; }
</style>
</head>
<body>
<section class="slide cover">
<h1>{{.Topic}}</h1>
<p class="meta">{{.GeneratedAt}}</p>
</section>
{{range .Slides}}
<section class="slide">
<h2>{{.Title}}</h2>
{{.Body}}
{{if .Image}}<img src="{{.Image}}" alt="">{{end}}
<span class="number">{{.Number}}</span>
</section>
{{end}}
</body>
</html>
`
