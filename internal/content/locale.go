package content

import "strings"

// localePack carries the deterministic strings the pipeline needs per
// language: placeholders for normalization and the fallback deck used when
// every provider fails. Wording is intentionally plain; full localization
// lives with the transport layer.
type localePack struct {
	SectionLabel   string
	DefaultSummary string
	DefaultBullets []string
	Fallback       []fallbackSection
}

type fallbackSection struct {
	Title   string
	Summary string
	Bullets []string
}

var locales = map[string]localePack{
	"en": {
		SectionLabel:   "Section",
		DefaultSummary: "This section covers a key aspect of the topic.",
		DefaultBullets: []string{"Key point of this section", "Supporting detail"},
		Fallback: []fallbackSection{
			{"Introduction", "What this presentation is about and why it matters.", []string{"Context and motivation", "Scope of the talk", "What to expect"}},
			{"Background", "The essential context needed to follow the topic.", []string{"How we got here", "Key terms", "Prior work"}},
			{"Key Concepts", "The core ideas at the heart of the topic.", []string{"Main concept", "Important relationships", "Common misconceptions"}},
			{"Current State", "Where things stand today.", []string{"Recent developments", "Main actors", "Open questions"}},
			{"Challenges", "The hardest problems in this area.", []string{"Known obstacles", "Trade-offs", "Risks"}},
			{"Opportunities", "Where the biggest gains can be made.", []string{"Promising directions", "Quick wins", "Long-term bets"}},
			{"Case Study", "A concrete example that illustrates the topic.", []string{"Setting", "What happened", "Lessons learned"}},
			{"Best Practices", "What experience suggests doing.", []string{"Recommended approach", "What to avoid", "Checklist"}},
			{"Future Outlook", "Where the topic is heading.", []string{"Trends", "Predictions", "What to watch"}},
			{"Conclusion", "Summary and takeaways.", []string{"Key takeaways", "Call to action", "Questions"}},
		},
	},
	"ru": {
		SectionLabel:   "Раздел",
		DefaultSummary: "Этот раздел раскрывает ключевой аспект темы.",
		DefaultBullets: []string{"Ключевой тезис раздела", "Дополнительная деталь"},
		Fallback: []fallbackSection{
			{"Введение", "О чём эта презентация и почему это важно.", []string{"Контекст и мотивация", "Рамки доклада", "Чего ожидать"}},
			{"Предпосылки", "Контекст, необходимый для понимания темы.", []string{"Как мы к этому пришли", "Ключевые термины", "Предыдущие работы"}},
			{"Ключевые понятия", "Основные идеи в центре темы.", []string{"Главная концепция", "Важные связи", "Типичные заблуждения"}},
			{"Текущее состояние", "Как обстоят дела сегодня.", []string{"Последние события", "Основные участники", "Открытые вопросы"}},
			{"Проблемы", "Самые сложные задачи в этой области.", []string{"Известные препятствия", "Компромиссы", "Риски"}},
			{"Возможности", "Где можно добиться наибольшего эффекта.", []string{"Перспективные направления", "Быстрые победы", "Долгосрочные ставки"}},
			{"Практический пример", "Конкретный пример, иллюстрирующий тему.", []string{"Условия", "Что произошло", "Выводы"}},
			{"Лучшие практики", "Что подсказывает опыт.", []string{"Рекомендуемый подход", "Чего избегать", "Чек-лист"}},
			{"Перспективы", "Куда движется тема.", []string{"Тенденции", "Прогнозы", "За чем следить"}},
			{"Заключение", "Итоги и выводы.", []string{"Главные выводы", "Призыв к действию", "Вопросы"}},
		},
	},
}

// localeFor returns the pack for a language code, defaulting to English.
func localeFor(language string) localePack {
	if pack, ok := locales[strings.ToLower(strings.TrimSpace(language))]; ok {
		return pack
	}
	return locales["en"]
}
