package content

import "fmt"

// fallbackSlides produces the deterministic deck used when every provider
// attempt failed: the locale's fixed section list sliced to pageCount, padded
// with placeholder sections when more pages were requested than the list has.
func fallbackSlides(pack localePack, pageCount int) []rawSlide {
	if pageCount <= 0 {
		return nil
	}
	slides := make([]rawSlide, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		if i < len(pack.Fallback) {
			section := pack.Fallback[i]
			slides = append(slides, rawSlide{
				Title:   section.Title,
				Summary: section.Summary,
				Bullets: toAny(section.Bullets),
			})
			continue
		}
		slides = append(slides, rawSlide{
			Title:   fmt.Sprintf("%s %d", pack.SectionLabel, i+1),
			Summary: pack.DefaultSummary,
			Bullets: toAny(pack.DefaultBullets),
		})
	}
	return slides
}

func toAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
