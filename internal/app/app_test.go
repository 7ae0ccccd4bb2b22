package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"deckforge/internal/content"
	"deckforge/internal/flow"
	"deckforge/internal/quota"
	"deckforge/internal/render"
	"deckforge/internal/store"
	"deckforge/pkg/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, limit int) (*App, *store.MemoryStore, domain.User) {
	t.Helper()
	st := store.NewMemoryStore()
	user, err := st.UpsertUser(domain.User{ChatID: 1, Name: "Test"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	renderer, err := render.NewHTMLRenderer(t.TempDir())
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	a, err := New(Config{
		Store:    st,
		Ledger:   quota.New(st, limit, 24*time.Hour),
		Content:  content.NewGenerator(nil, nil, discard()),
		Renderer: renderer,
		Log:      discard(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, st, user
}

func literalParams() flow.Params {
	return flow.Params{
		Language:   "en",
		Topic:      "Climate policy",
		Audience:   "students",
		Role:       "teacher",
		Goal:       "inform",
		Tone:       "formal",
		TemplateID: 2,
		PageCount:  6,
		WithImages: true,
	}
}

func TestRunGenerationCompletesReservation(t *testing.T) {
	a, st, user := newTestApp(t, 3)

	var delivered string
	res, err := a.RunGeneration(context.Background(), user, literalParams(),
		func(ctx context.Context, path string) error {
			if _, statErr := os.Stat(path); statErr != nil {
				t.Errorf("document missing at delivery time: %v", statErr)
			}
			delivered = path
			return nil
		})
	if err != nil {
		t.Fatalf("run generation: %v", err)
	}
	if res.Blocked {
		t.Fatalf("first generation must not be blocked")
	}
	if delivered == "" {
		t.Fatalf("deliver callback never ran")
	}
	if _, statErr := os.Stat(delivered); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("document must be deleted after delivery: %v", statErr)
	}

	av, err := a.CheckAvailability(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if av.Used != 1 {
		t.Fatalf("completed generation should consume one slot, used=%d", av.Used)
	}

	// Inspect the single record directly.
	usage, err := st.CountWindow(user.ID, time.Now().Add(-24*time.Hour))
	if err != nil || usage.Count != 1 {
		t.Fatalf("window usage = %+v err=%v", usage, err)
	}
}

func TestRunGenerationRecordsMetadata(t *testing.T) {
	a, st, user := newTestApp(t, 3)

	_, err := a.RunGeneration(context.Background(), user, literalParams(),
		func(ctx context.Context, path string) error { return nil })
	if err != nil {
		t.Fatalf("run generation: %v", err)
	}

	gens := st.Generations()
	if len(gens) != 1 {
		t.Fatalf("expected one record, got %d", len(gens))
	}
	gen := gens[0]
	if gen.Status != domain.GenerationCompleted {
		t.Fatalf("record must end completed, got %s", gen.Status)
	}
	meta := gen.Meta
	if meta.Prompt != "Climate policy" || meta.Language != "en" ||
		meta.TemplateID != 2 || meta.PageCount != 6 || !meta.WithImages {
		t.Fatalf("metadata does not match wizard input: %+v", meta)
	}
	if meta.OutputFile == "" {
		t.Fatalf("metadata missing output filename")
	}
}

func TestRunGenerationDeliveryFailureReleasesSlot(t *testing.T) {
	a, _, user := newTestApp(t, 3)

	_, err := a.RunGeneration(context.Background(), user, literalParams(),
		func(ctx context.Context, path string) error { return errors.New("chat unreachable") })
	if err == nil {
		t.Fatalf("expected delivery error to surface")
	}

	av, checkErr := a.CheckAvailability(user.ID)
	if checkErr != nil {
		t.Fatalf("check: %v", checkErr)
	}
	if av.Used != 0 {
		t.Fatalf("failed generation must not consume the window, used=%d", av.Used)
	}
}

func TestRunGenerationBlockedAtLimit(t *testing.T) {
	a, _, user := newTestApp(t, 1)

	ok := func(ctx context.Context, path string) error { return nil }
	if _, err := a.RunGeneration(context.Background(), user, literalParams(), ok); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := a.RunGeneration(context.Background(), user, literalParams(), ok)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res.Blocked {
		t.Fatalf("second run must be blocked at limit 1")
	}
	if res.Availability.NextAvailableAt.IsZero() {
		t.Fatalf("blocked result must carry retry time")
	}
}
