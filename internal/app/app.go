// Package app wires the generation pipeline: reserve a quota slot, run the
// content and image cascades, render, deliver, archive, finalize. The
// ledger's state is authoritative; every error path after a granted
// reservation resolves it through the conditional failed-if-pending guard.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"deckforge/internal/archive"
	"deckforge/internal/content"
	"deckforge/internal/events"
	"deckforge/internal/flow"
	"deckforge/internal/images"
	"deckforge/internal/quota"
	"deckforge/internal/render"
	"deckforge/internal/store"
	"deckforge/pkg/domain"
)

// Config holds the pipeline collaborators. Images, Archive and Events are
// optional; nil disables them.
type Config struct {
	Store    store.Store
	Ledger   *quota.Ledger
	Content  *content.Generator
	Images   *images.Enricher
	Renderer render.Renderer
	Archive  *archive.DeckArchive
	Events   *events.Publisher
	Log      *slog.Logger
}

// App is the core application service running generations end to end.
type App struct {
	store    store.Store
	ledger   *quota.Ledger
	content  *content.Generator
	images   *images.Enricher
	renderer render.Renderer
	archive  *archive.DeckArchive
	events   *events.Publisher
	log      *slog.Logger
}

// New validates required collaborators and builds the app.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("quota ledger required")
	}
	if cfg.Content == nil {
		return nil, fmt.Errorf("content generator required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &App{
		store:    cfg.Store,
		ledger:   cfg.Ledger,
		content:  cfg.Content,
		images:   cfg.Images,
		renderer: cfg.Renderer,
		archive:  cfg.Archive,
		events:   cfg.Events,
		log:      log,
	}, nil
}

// Touch upserts the user on contact, refreshing name and handle.
func (a *App) Touch(chatID int64, name, username string) (domain.User, error) {
	return a.store.UpsertUser(domain.User{ChatID: chatID, Name: name, Username: username})
}

// Register completes registration with the shared phone number.
func (a *App) Register(userID, phone string) error {
	return a.store.SetUserPhone(userID, phone)
}

// CheckAvailability reports the user's quota standing.
func (a *App) CheckAvailability(userID string) (quota.Availability, error) {
	return a.ledger.CheckAvailability(userID)
}

// Result reports how a generation attempt ended. Blocked means the quota
// denied the slot; Availability is filled either way.
type Result struct {
	Blocked      bool
	Availability quota.Availability
}

// DeliverFunc hands the rendered document to the user. The file is deleted
// after it returns.
type DeliverFunc func(ctx context.Context, path string) error

// RunGeneration runs the pipeline for a completed wizard. Once the
// reservation is granted the pipeline runs to completion; the quota slot is
// released (failed status) on every error path.
func (a *App) RunGeneration(ctx context.Context, user domain.User, params flow.Params, deliver DeliverFunc) (Result, error) {
	meta := domain.GenerationMeta{
		Prompt:     params.Topic,
		Language:   params.Language,
		TemplateID: params.TemplateID,
		PageCount:  params.PageCount,
		WithImages: params.WithImages,
	}
	res, err := a.ledger.Reserve(user.ID, meta)
	if err != nil {
		return Result{}, err
	}
	if !res.Allowed {
		a.log.Info("generation blocked by quota",
			"user", user.ID, "used", res.Used, "limit", res.Limit,
			"next", res.NextAvailableAt)
		return Result{Blocked: true, Availability: res.Availability}, nil
	}
	a.publish(ctx, events.RoutingReserved, res.ID, user.ID, domain.GenerationPending)
	a.log.Info("generation reserved",
		"user", user.ID, "reservation", res.ID,
		"pages", params.PageCount, "images", params.WithImages)

	fail := func(cause error) (Result, error) {
		if _, guardErr := a.ledger.MarkFailedIfPending(res.ID); guardErr != nil {
			a.log.Error("failed to mark reservation failed", "reservation", res.ID, "err", guardErr)
		}
		a.publish(ctx, events.RoutingFailed, res.ID, user.ID, domain.GenerationFailed)
		return Result{Availability: res.Availability}, cause
	}

	topic, slides := a.content.Generate(ctx, content.Request{
		Topic:     params.Topic,
		Language:  params.Language,
		Audience:  params.Audience,
		Role:      params.Role,
		Goal:      params.Goal,
		Tone:      params.Tone,
		PageCount: params.PageCount,
	})
	if params.WithImages {
		a.images.Enrich(ctx, topic, params.Language, slides)
	}

	deck := domain.Deck{
		Topic:       topic,
		Language:    params.Language,
		TemplateID:  params.TemplateID,
		GeneratedAt: time.Now().UTC(),
		Slides:      slides,
	}
	path, err := a.renderer.Render(ctx, deck)
	if err != nil {
		return fail(fmt.Errorf("render deck: %w", err))
	}
	defer os.Remove(path)

	if a.archive != nil {
		if key, archiveErr := a.archive.Store(ctx, res.ID, path); archiveErr != nil {
			a.log.Warn("deck archive failed", "reservation", res.ID, "err", archiveErr)
		} else {
			a.log.Debug("deck archived", "reservation", res.ID, "key", key)
		}
	}

	if err := deliver(ctx, path); err != nil {
		return fail(fmt.Errorf("deliver deck: %w", err))
	}

	meta.OutputFile = filepath.Base(path)
	if err := a.ledger.UpdateMeta(res.ID, meta); err != nil {
		a.log.Warn("failed to record output filename", "reservation", res.ID, "err", err)
	}
	if err := a.ledger.Finalize(res.ID, domain.GenerationCompleted); err != nil {
		return fail(fmt.Errorf("finalize reservation: %w", err))
	}
	a.publish(ctx, events.RoutingCompleted, res.ID, user.ID, domain.GenerationCompleted)
	a.log.Info("generation completed", "user", user.ID, "reservation", res.ID)
	return Result{Availability: res.Availability}, nil
}

func (a *App) publish(ctx context.Context, routingKey, generationID, userID string, status domain.GenerationStatus) {
	err := a.events.Publish(ctx, routingKey, events.GenerationEvent{
		GenerationID: generationID,
		UserID:       userID,
		Status:       string(status),
		At:           time.Now().UTC(),
	})
	if err != nil {
		a.log.Warn("event publish failed", "routing", routingKey, "err", err)
	}
}
