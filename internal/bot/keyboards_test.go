package bot

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSplitCallback(t *testing.T) {
	cases := []struct {
		data, prefix, payload string
	}{
		{"lang:en", "lang", "en"},
		{"tpl:2", "tpl", "2"},
		{"nav:back", "nav", "back"},
		{"noseparator", "noseparator", ""},
	}
	for _, c := range cases {
		prefix, payload := splitCallback(c.data)
		if prefix != c.prefix || payload != c.payload {
			t.Errorf("splitCallback(%q) = %q,%q", c.data, prefix, payload)
		}
	}
}

func TestPagesKeyboardRoundTrips(t *testing.T) {
	kb := pagesKeyboard(textsFor("en"))
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("expected choices row plus nav row, got %d rows", len(kb.InlineKeyboard))
	}
	for i, btn := range kb.InlineKeyboard[0] {
		prefix, payload := splitCallback(*btn.CallbackData)
		if prefix != cbPages {
			t.Fatalf("button %d prefix = %q", i, prefix)
		}
		n, err := parsePageChoice(payload)
		if err != nil {
			t.Fatalf("parse choice %q: %v", payload, err)
		}
		if n != pageChoices[i] {
			t.Fatalf("choice %d = %d, want %d", i, n, pageChoices[i])
		}
		if btn.Text != strconv.Itoa(pageChoices[i]) {
			t.Fatalf("button label %q", btn.Text)
		}
	}
}

func TestTextsFallbackToEnglish(t *testing.T) {
	if textsFor("de").Welcome != textsFor("en").Welcome {
		t.Fatalf("unknown language must fall back to English")
	}
	ru := textsFor("ru")
	if ru.Welcome == textsFor("en").Welcome {
		t.Fatalf("russian texts missing")
	}
	for _, key := range []string{"audience", "role", "goal", "tone"} {
		if ru.BriefQuestions[key] == "" || textsFor("en").BriefQuestions[key] == "" {
			t.Fatalf("brief question %q missing", key)
		}
	}
}

func TestFormatQuotaBlockedIncludesRetryTime(t *testing.T) {
	next := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	msg := formatQuotaBlocked(textsFor("en"), 3, 3, next)
	if want := "2025-06-01 09:30 UTC"; !strings.Contains(msg, want) {
		t.Fatalf("blocked message %q lacks %q", msg, want)
	}
}
