package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes. Everything after the colon is the payload.
const (
	cbLang   = "lang"
	cbTpl    = "tpl"
	cbPages  = "pages"
	cbImages = "img"
	cbBack   = "nav:back"
	cbCancel = "nav:cancel"
)

var pageChoices = []int{3, 6, 10, 15}

func callbackData(prefix, payload string) string {
	return prefix + ":" + payload
}

// splitCallback separates "prefix:payload" callback data. Navigation values
// like nav:back come back with prefix "nav".
func splitCallback(data string) (prefix, payload string) {
	if i := strings.IndexByte(data, ':'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, ""
}

func navRow(t texts) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(t.BackButton, cbBack),
		tgbotapi.NewInlineKeyboardButtonData(t.CancelButton, cbCancel),
	)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("English", callbackData(cbLang, "en")),
			tgbotapi.NewInlineKeyboardButtonData("Русский", callbackData(cbLang, "ru")),
		),
	)
}

func templateKeyboard(t texts) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Minimal", callbackData(cbTpl, "1")),
			tgbotapi.NewInlineKeyboardButtonData("Slate", callbackData(cbTpl, "2")),
			tgbotapi.NewInlineKeyboardButtonData("Warm", callbackData(cbTpl, "3")),
		),
		navRow(t),
	)
}

func pagesKeyboard(t texts) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(pageChoices))
	for _, n := range pageChoices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			strconv.Itoa(n), callbackData(cbPages, strconv.Itoa(n))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row, navRow(t))
}

func imagesKeyboard(t texts) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.YesButton, callbackData(cbImages, "yes")),
			tgbotapi.NewInlineKeyboardButtonData(t.NoButton, callbackData(cbImages, "no")),
		),
		navRow(t),
	)
}

func cancelKeyboard(t texts) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.CancelButton, cbCancel),
		),
	)
}

func contactKeyboard(t texts) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact(t.ContactButton),
		),
	)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

func parsePageChoice(payload string) (int, error) {
	n, err := strconv.Atoi(payload)
	if err != nil {
		return 0, fmt.Errorf("bad page choice %q: %w", payload, err)
	}
	return n, nil
}
