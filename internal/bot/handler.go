// Package bot is the chat transport: it maps Telegram updates onto the
// wizard state machine and the generation pipeline. All decisions live in
// those collaborators; this layer only prompts, parses and delivers.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deckforge/internal/app"
	"deckforge/internal/flow"
	"deckforge/internal/ratelimit"
	"deckforge/pkg/domain"
)

// generationTimeout bounds one full pipeline run.
const generationTimeout = 5 * time.Minute

// Bot runs the Telegram update loop.
type Bot struct {
	api   *tgbotapi.BotAPI
	app   *app.App
	flows *flow.Machine
	flood *ratelimit.FloodLimiter
	log   *slog.Logger
}

// New authorizes against the Telegram API and builds the bot.
func New(token string, application *app.App, flows *flow.Machine, flood *ratelimit.FloodLimiter, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authorize: %w", err)
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api, app: application, flows: flows, flood: flood, log: log}, nil
}

// Start consumes updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panic", "panic", r)
		}
	}()
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userKey := msg.From.ID
	t := b.textsForUser(userKey)

	if !b.flood.Allow(chatID) {
		b.send(tgbotapi.NewMessage(chatID, t.FloodWait))
		return
	}

	user, err := b.app.Touch(chatID, msg.From.FirstName, msg.From.UserName)
	if err != nil {
		b.log.Error("user upsert failed", "chat", chatID, "err", err)
		return
	}

	if msg.Contact != nil {
		b.handleContact(chatID, user, msg.Contact, t)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.send(tgbotapi.NewMessage(chatID, t.Welcome))
			if !user.Registered() {
				reply := tgbotapi.NewMessage(chatID, t.AskContact)
				reply.ReplyMarkup = contactKeyboard(t)
				b.send(reply)
			}
		case "generate":
			b.cmdGenerate(chatID, userKey, user, t)
		case "quota":
			b.cmdQuota(chatID, user, t)
		case "cancel":
			b.cmdCancel(chatID, userKey, t)
		default:
			b.send(tgbotapi.NewMessage(chatID, t.UnknownInput))
		}
		return
	}

	b.handleWizardText(chatID, userKey, msg.Text, t)
}

func (b *Bot) handleContact(chatID int64, user domain.User, contact *tgbotapi.Contact, t texts) {
	if err := b.app.Register(user.ID, contact.PhoneNumber); err != nil {
		b.log.Error("registration failed", "user", user.ID, "err", err)
		return
	}
	reply := tgbotapi.NewMessage(chatID, t.Registered)
	reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	b.send(reply)
}

func (b *Bot) cmdGenerate(chatID, userKey int64, user domain.User, t texts) {
	if !user.Registered() {
		reply := tgbotapi.NewMessage(chatID, t.NeedRegister)
		reply.ReplyMarkup = contactKeyboard(t)
		b.send(reply)
		return
	}
	av, err := b.app.CheckAvailability(user.ID)
	if err != nil {
		b.log.Error("availability check failed", "user", user.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, t.Failed))
		return
	}
	if !av.Allowed {
		b.send(tgbotapi.NewMessage(chatID, formatQuotaBlocked(t, av.Used, av.Limit, av.NextAvailableAt)))
		return
	}
	b.flows.Start(userKey)
	b.sendPrompt(chatID, userKey, t.AskLanguage, languageKeyboard())
}

func (b *Bot) cmdQuota(chatID int64, user domain.User, t texts) {
	av, err := b.app.CheckAvailability(user.ID)
	if err != nil {
		b.log.Error("availability check failed", "user", user.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, t.Failed))
		return
	}
	if av.Allowed {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(t.QuotaStatus, av.Used, av.Limit)))
		return
	}
	b.send(tgbotapi.NewMessage(chatID, formatQuotaBlocked(t, av.Used, av.Limit, av.NextAvailableAt)))
}

func (b *Bot) cmdCancel(chatID, userKey int64, t texts) {
	if _, ok := b.flows.Get(userKey); !ok {
		b.send(tgbotapi.NewMessage(chatID, t.NothingToCancel))
		return
	}
	b.flows.Clear(userKey)
	b.send(tgbotapi.NewMessage(chatID, t.Cancelled))
}

// handleWizardText routes free-form text by the wizard's current step. A
// rejected transition re-prompts; it never advances state.
func (b *Bot) handleWizardText(chatID, userKey int64, text string, t texts) {
	state, ok := b.flows.Get(userKey)
	if !ok {
		b.send(tgbotapi.NewMessage(chatID, t.UnknownInput))
		return
	}
	switch state.Step {
	case flow.StepTopic:
		if !b.flows.SetTopic(userKey, text) {
			b.send(tgbotapi.NewMessage(chatID, t.AskTopic))
			return
		}
		b.askNextBrief(chatID, userKey, t)
	case flow.StepBrief:
		key, ok := b.flows.NextBriefKey(userKey)
		if !ok || !b.flows.SetBriefAnswer(userKey, key, text) {
			b.askNextBrief(chatID, userKey, t)
			return
		}
		if _, more := b.flows.NextBriefKey(userKey); more {
			b.askNextBrief(chatID, userKey, t)
			return
		}
		if b.flows.CompleteBrief(userKey) {
			b.sendPrompt(chatID, userKey, t.AskTemplate, templateKeyboard(t))
		}
	case flow.StepPages:
		n, err := strconv.Atoi(text)
		if err != nil || !b.flows.SetPageCount(userKey, n) {
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(t.InvalidPages, flow.MinPageCount, flow.MaxPageCount)))
			return
		}
		b.sendPrompt(chatID, userKey, t.AskImages, imagesKeyboard(t))
	default:
		b.send(tgbotapi.NewMessage(chatID, t.UnknownInput))
	}
}

func (b *Bot) askNextBrief(chatID, userKey int64, t texts) {
	key, ok := b.flows.NextBriefKey(userKey)
	if !ok {
		return
	}
	question, ok := t.BriefQuestions[key]
	if !ok {
		question = key
	}
	msg := tgbotapi.NewMessage(chatID, question)
	msg.ReplyMarkup = cancelKeyboard(t)
	b.send(msg)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug("callback ack failed", "err", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	userKey := cb.From.ID
	b.flows.SetPromptMessage(userKey, cb.Message.MessageID)
	t := b.textsForUser(userKey)

	prefix, payload := splitCallback(cb.Data)
	switch prefix {
	case cbLang:
		if !b.flows.SetLanguage(userKey, payload) {
			b.send(tgbotapi.NewMessage(chatID, t.UnknownInput))
			return
		}
		t = b.textsForUser(userKey)
		b.sendPrompt(chatID, userKey, t.AskTopic, cancelKeyboard(t))
	case cbTpl:
		id, err := strconv.Atoi(payload)
		if err != nil || !b.flows.SetTemplate(userKey, id) {
			b.send(tgbotapi.NewMessage(chatID, t.UnknownInput))
			return
		}
		b.sendPrompt(chatID, userKey,
			fmt.Sprintf(t.AskPages, flow.MinPageCount, flow.MaxPageCount), pagesKeyboard(t))
	case cbPages:
		n, err := parsePageChoice(payload)
		if err != nil || !b.flows.SetPageCount(userKey, n) {
			b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(t.InvalidPages, flow.MinPageCount, flow.MaxPageCount)))
			return
		}
		b.sendPrompt(chatID, userKey, t.AskImages, imagesKeyboard(t))
	case cbImages:
		params, ok := b.flows.SetGenerating(userKey, payload == "yes")
		if !ok {
			b.send(tgbotapi.NewMessage(chatID, t.UnknownInput))
			return
		}
		b.startGeneration(ctx, chatID, userKey, cb.From, params, t)
	case "nav":
		switch cb.Data {
		case cbBack:
			step, ok := b.flows.Back(userKey)
			if ok {
				b.promptForStep(chatID, userKey, step, t)
			}
		case cbCancel:
			b.flows.Clear(userKey)
			b.sendPrompt(chatID, userKey, t.Cancelled, tgbotapi.InlineKeyboardMarkup{})
		}
	}
}

// promptForStep re-issues the prompt matching a step, used after Back.
func (b *Bot) promptForStep(chatID, userKey int64, step flow.Step, t texts) {
	switch step {
	case flow.StepLanguage:
		b.sendPrompt(chatID, userKey, t.AskLanguage, languageKeyboard())
	case flow.StepTopic:
		b.sendPrompt(chatID, userKey, t.AskTopic, cancelKeyboard(t))
	case flow.StepBrief:
		b.askNextBrief(chatID, userKey, t)
	case flow.StepTemplate:
		b.sendPrompt(chatID, userKey, t.AskTemplate, templateKeyboard(t))
	case flow.StepPages:
		b.sendPrompt(chatID, userKey,
			fmt.Sprintf(t.AskPages, flow.MinPageCount, flow.MaxPageCount), pagesKeyboard(t))
	case flow.StepImages:
		b.sendPrompt(chatID, userKey, t.AskImages, imagesKeyboard(t))
	}
}

// startGeneration runs the pipeline off the update goroutine and reports the
// terminal outcome back into the chat. The wizard state is cleared on every
// terminal path so the user can retry cleanly.
func (b *Bot) startGeneration(ctx context.Context, chatID, userKey int64, from *tgbotapi.User, params flow.Params, t texts) {
	user, err := b.app.Touch(chatID, from.FirstName, from.UserName)
	if err != nil {
		b.log.Error("user upsert failed", "chat", chatID, "err", err)
		b.flows.Clear(userKey)
		b.send(tgbotapi.NewMessage(chatID, t.Failed))
		return
	}
	b.sendPrompt(chatID, userKey, t.Generating, tgbotapi.InlineKeyboardMarkup{})

	go func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
		defer cancel()
		defer b.flows.Clear(userKey)

		res, err := b.app.RunGeneration(runCtx, user, params, func(ctx context.Context, path string) error {
			doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
			doc.Caption = t.Done
			_, sendErr := b.api.Send(doc)
			return sendErr
		})
		switch {
		case err != nil:
			b.log.Error("generation failed", "chat", chatID, "err", err)
			b.send(tgbotapi.NewMessage(chatID, t.Failed))
		case res.Blocked:
			b.send(tgbotapi.NewMessage(chatID,
				formatQuotaBlocked(t, res.Availability.Used, res.Availability.Limit, res.Availability.NextAvailableAt)))
		}
	}()
}

// sendPrompt edits the last prompt message in place when there is one,
// otherwise sends a new message, and remembers the message id either way.
func (b *Bot) sendPrompt(chatID, userKey int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	state, ok := b.flows.Get(userKey)
	if ok && state.PromptMessageID > 0 {
		edit := tgbotapi.NewEditMessageText(chatID, state.PromptMessageID, text)
		if len(keyboard.InlineKeyboard) > 0 {
			edit.ReplyMarkup = &keyboard
		}
		if _, err := b.api.Send(edit); err == nil {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = keyboard
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("prompt send failed", "chat", chatID, "err", err)
		return
	}
	b.flows.SetPromptMessage(userKey, sent.MessageID)
}

func (b *Bot) textsForUser(userKey int64) texts {
	if state, ok := b.flows.Get(userKey); ok && state.Language != "" {
		return textsFor(state.Language)
	}
	return textsFor("en")
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("telegram send failed", "err", err)
	}
}
