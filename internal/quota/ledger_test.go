package quota

import (
	"sync"
	"testing"
	"time"

	"deckforge/internal/store"
	"deckforge/pkg/domain"
)

func newTestLedger(t *testing.T, limit int) (*Ledger, *store.MemoryStore, domain.User) {
	t.Helper()
	st := store.NewMemoryStore()
	user, err := st.UpsertUser(domain.User{ChatID: 100, Name: "Test"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return New(st, limit, 24*time.Hour), st, user
}

func TestReserveEnforcesLimit(t *testing.T) {
	ledger, _, user := newTestLedger(t, 3)

	for i := 0; i < 3; i++ {
		res, err := ledger.Reserve(user.ID, domain.GenerationMeta{Prompt: "topic"})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if !res.Allowed || res.ID == "" {
			t.Fatalf("reserve %d should be granted", i)
		}
	}

	res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
	if err != nil {
		t.Fatalf("reserve over limit: %v", err)
	}
	if res.Allowed || res.ID != "" {
		t.Fatalf("fourth reserve should be blocked, got %+v", res)
	}
	if res.Used != 3 || res.Remaining != 0 {
		t.Fatalf("blocked result should report used=3 remaining=0, got %+v", res)
	}
	if res.NextAvailableAt.IsZero() {
		t.Fatalf("blocked result should carry a retry time")
	}
}

func TestConcurrentReserveGrantsExactlyOneSlot(t *testing.T) {
	ledger, _, user := newTestLedger(t, 3)

	for i := 0; i < 2; i++ {
		if res, err := ledger.Reserve(user.ID, domain.GenerationMeta{}); err != nil || !res.Allowed {
			t.Fatalf("warmup reserve %d: res=%+v err=%v", i, res, err)
		}
	}

	const attempts = 16
	var wg sync.WaitGroup
	granted := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
			if err != nil {
				t.Errorf("concurrent reserve: %v", err)
				return
			}
			if res.Allowed {
				granted <- res.ID
			}
		}()
	}
	wg.Wait()
	close(granted)

	var ids []string
	for id := range granted {
		ids = append(ids, id)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one grant for the last slot, got %d", len(ids))
	}
}

func TestFailedRecordReleasesSlot(t *testing.T) {
	ledger, _, user := newTestLedger(t, 3)

	before, err := ledger.CheckAvailability(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
	if err != nil || !res.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", res, err)
	}
	if err := ledger.Finalize(res.ID, domain.GenerationFailed); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	after, err := ledger.CheckAvailability(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if after.Used != before.Used {
		t.Fatalf("failed reservation must not consume the window: before=%d after=%d", before.Used, after.Used)
	}
}

func TestCompletedRecordCountsInWindow(t *testing.T) {
	ledger, _, user := newTestLedger(t, 3)

	res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
	if err != nil || !res.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", res, err)
	}
	if err := ledger.Finalize(res.ID, domain.GenerationCompleted); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	av, err := ledger.CheckAvailability(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if av.Used != 1 || av.Remaining != 2 {
		t.Fatalf("completed record should count: %+v", av)
	}
}

func TestFinalizeRejectsNonTerminalStatus(t *testing.T) {
	ledger, _, user := newTestLedger(t, 3)
	res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
	if err != nil || !res.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", res, err)
	}
	if err := ledger.Finalize(res.ID, domain.GenerationPending); err == nil {
		t.Fatalf("finalize with pending should be rejected")
	}
}

func TestMarkFailedIfPendingIsGuarded(t *testing.T) {
	ledger, st, user := newTestLedger(t, 3)

	res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
	if err != nil || !res.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", res, err)
	}
	if err := ledger.Finalize(res.ID, domain.GenerationCompleted); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	changed, err := ledger.MarkFailedIfPending(res.ID)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if changed {
		t.Fatalf("guard must not override a terminal status")
	}
	gen, ok, err := st.GetGeneration(res.ID)
	if err != nil || !ok {
		t.Fatalf("get generation: ok=%v err=%v", ok, err)
	}
	if gen.Status != domain.GenerationCompleted {
		t.Fatalf("status changed after terminal state: %s", gen.Status)
	}
}

func TestRecoverOrphanedOnStartup(t *testing.T) {
	ledger, st, user := newTestLedger(t, 5)

	var pending []string
	for i := 0; i < 3; i++ {
		res, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
		if err != nil || !res.Allowed {
			t.Fatalf("reserve %d: res=%+v err=%v", i, res, err)
		}
		pending = append(pending, res.ID)
	}
	done, err := ledger.Reserve(user.ID, domain.GenerationMeta{})
	if err != nil || !done.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", done, err)
	}
	if err := ledger.Finalize(done.ID, domain.GenerationCompleted); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	n, err := ledger.RecoverOrphanedOnStartup()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 recovered, got %d", n)
	}
	for _, id := range pending {
		gen, _, _ := st.GetGeneration(id)
		if gen.Status != domain.GenerationFailed {
			t.Fatalf("pending record %s not failed: %s", id, gen.Status)
		}
	}
	gen, _, _ := st.GetGeneration(done.ID)
	if gen.Status != domain.GenerationCompleted {
		t.Fatalf("terminal record must survive recovery: %s", gen.Status)
	}

	again, err := ledger.RecoverOrphanedOnStartup()
	if err != nil {
		t.Fatalf("recover twice: %v", err)
	}
	if again != 0 {
		t.Fatalf("recovery must be idempotent, got %d", again)
	}
}

func TestNextAvailableAtAnchorsOnOldestRecord(t *testing.T) {
	st := store.NewMemoryStore()
	user, err := st.UpsertUser(domain.User{ChatID: 7, Name: "T"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	ledger := New(st, 2, 24*time.Hour).WithClock(func() time.Time { return current })

	if res, err := ledger.Reserve(user.ID, domain.GenerationMeta{}); err != nil || !res.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", res, err)
	}
	current = base.Add(2 * time.Hour)
	if res, err := ledger.Reserve(user.ID, domain.GenerationMeta{}); err != nil || !res.Allowed {
		t.Fatalf("reserve: res=%+v err=%v", res, err)
	}

	current = base.Add(3 * time.Hour)
	av, err := ledger.CheckAvailability(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if av.Allowed {
		t.Fatalf("window full, expected blocked")
	}
	want := base.Add(24 * time.Hour)
	if !av.NextAvailableAt.Equal(want) {
		t.Fatalf("next available = %v, want oldest+window %v", av.NextAvailableAt, want)
	}

	// Aged-out records stop counting.
	current = base.Add(25 * time.Hour)
	av, err = ledger.CheckAvailability(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !av.Allowed || av.Used != 1 {
		t.Fatalf("expected one slot back after the oldest aged out, got %+v", av)
	}
}
