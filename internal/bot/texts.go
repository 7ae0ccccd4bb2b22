package bot

import (
	"fmt"
	"time"
)

// texts holds every user-facing string for one language.
type texts struct {
	Welcome         string
	AskContact      string
	ContactButton   string
	Registered      string
	NeedRegister    string
	AskLanguage     string
	AskTopic        string
	BriefQuestions  map[string]string
	AskTemplate     string
	AskPages        string
	AskImages       string
	Generating      string
	Done            string
	Failed          string
	Cancelled       string
	NothingToCancel string
	QuotaStatus     string
	QuotaBlocked    string
	FloodWait       string
	UnknownInput    string
	InvalidPages    string
	BackButton      string
	CancelButton    string
	YesButton       string
	NoButton        string
}

var allTexts = map[string]texts{
	"en": {
		Welcome: "Hi! I turn a short topic into a ready presentation.\n\n" +
			"/generate — build a new deck\n/quota — check your daily limit\n/cancel — abandon the current wizard",
		AskContact:    "Share your phone number to finish registration.",
		ContactButton: "Share phone number",
		Registered:    "You are registered. Send /generate to build your first deck.",
		NeedRegister:  "Registration is required first. Tap the button below to share your contact.",
		AskLanguage:   "Choose the presentation language. / Выберите язык презентации.",
		AskTopic:      "What is the presentation about? Send a short topic.",
		BriefQuestions: map[string]string{
			"audience": "Who is the audience?",
			"role":     "What is your role relative to them?",
			"goal":     "What should the presentation achieve?",
			"tone":     "What tone should it have (formal, friendly, ...)?",
		},
		AskTemplate:     "Pick a visual template.",
		AskPages:        "How many slides? Pick an option or type a number (%d-%d).",
		AskImages:       "Add images to the slides?",
		Generating:      "Working on your presentation. This takes a minute.",
		Done:            "Here is your presentation.",
		Failed:          "Something went wrong while building the deck. Your quota slot was not consumed, feel free to retry.",
		Cancelled:       "Wizard cancelled. Send /generate to start over.",
		NothingToCancel: "Nothing to cancel.",
		QuotaStatus:     "Used %d of %d generations in the current 24h window.",
		QuotaBlocked:    "Limit reached: %d of %d used. Next slot frees up at %s.",
		FloodWait:       "Too many requests. Give it a minute.",
		UnknownInput:    "I did not expect that here. Use the buttons above or /generate to start.",
		InvalidPages:    "Please pick a number between %d and %d.",
		BackButton:      "Back",
		CancelButton:    "Cancel",
		YesButton:       "Yes",
		NoButton:        "No",
	},
	"ru": {
		Welcome: "Привет! Я превращаю короткую тему в готовую презентацию.\n\n" +
			"/generate — собрать новую презентацию\n/quota — проверить дневной лимит\n/cancel — прервать текущий мастер",
		AskContact:    "Поделитесь номером телефона, чтобы завершить регистрацию.",
		ContactButton: "Поделиться номером",
		Registered:    "Регистрация завершена. Отправьте /generate, чтобы собрать первую презентацию.",
		NeedRegister:  "Сначала нужна регистрация. Нажмите кнопку ниже, чтобы поделиться контактом.",
		AskLanguage:   "Choose the presentation language. / Выберите язык презентации.",
		AskTopic:      "О чём будет презентация? Пришлите короткую тему.",
		BriefQuestions: map[string]string{
			"audience": "Кто аудитория?",
			"role":     "Какова ваша роль по отношению к ней?",
			"goal":     "Какова цель презентации?",
			"tone":     "В каком тоне выступать (формальный, дружеский, ...)?",
		},
		AskTemplate:     "Выберите шаблон оформления.",
		AskPages:        "Сколько слайдов? Выберите вариант или введите число (%d-%d).",
		AskImages:       "Добавить изображения на слайды?",
		Generating:      "Готовлю презентацию. Это займёт около минуты.",
		Done:            "Ваша презентация готова.",
		Failed:          "Не получилось собрать презентацию. Слот квоты не потрачен, попробуйте ещё раз.",
		Cancelled:       "Мастер прерван. Отправьте /generate, чтобы начать заново.",
		NothingToCancel: "Нечего отменять.",
		QuotaStatus:     "Использовано %d из %d генераций за текущие 24 часа.",
		QuotaBlocked:    "Лимит исчерпан: %d из %d. Следующий слот освободится в %s.",
		FloodWait:       "Слишком много запросов. Подождите минуту.",
		UnknownInput:    "Здесь я этого не ожидал. Используйте кнопки выше или /generate.",
		InvalidPages:    "Введите число от %d до %d.",
		BackButton:      "Назад",
		CancelButton:    "Отмена",
		YesButton:       "Да",
		NoButton:        "Нет",
	},
}

// textsFor returns the string table for a language, defaulting to English.
func textsFor(lang string) texts {
	if t, ok := allTexts[lang]; ok {
		return t
	}
	return allTexts["en"]
}

func formatQuotaBlocked(t texts, used, limit int, next time.Time) string {
	return fmt.Sprintf(t.QuotaBlocked, used, limit, next.UTC().Format("2006-01-02 15:04 MST"))
}
