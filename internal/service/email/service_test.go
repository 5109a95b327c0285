package email

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	contractmq "commandmail/contracts/mq"
	"commandmail/internal/apperr"
	"commandmail/internal/model"
	"commandmail/internal/service/processor"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore is an in-memory Store keyed by id.
type memStore struct {
	mu     sync.Mutex
	emails map[uuid.UUID]model.Email
}

func newMemStore() *memStore {
	return &memStore{emails: map[uuid.UUID]model.Email{}}
}

func (m *memStore) ReplaceAll(_ context.Context, seed []model.Email) ([]model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = map[uuid.UUID]model.Email{}
	out := make([]model.Email, 0, len(seed))
	for _, e := range seed {
		e.ID = uuid.New()
		m.emails[e.ID] = e
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok {
		return nil, apperr.NotFound("Email", id.String())
	}
	return &e, nil
}

func (m *memStore) List(_ context.Context, f model.EmailFilter) ([]model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Email{}
	for _, e := range m.emails {
		if f.Processed != nil && e.Processed != *f.Processed {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) SaveProcessing(_ context.Context, id uuid.UUID, c model.Category, items []model.ActionItem) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok {
		return nil, apperr.NotFound("Email", id.String())
	}
	e.Category, e.ActionItems, e.Processed = c, items, true
	m.emails[id] = e
	return &e, nil
}

func (m *memStore) ToggleActionItem(_ context.Context, id uuid.UUID, index int) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok {
		return nil, apperr.NotFound("Email", id.String())
	}
	items, err := model.ToggleActionItem(e.ActionItems, index, time.Now())
	if err != nil {
		return nil, err
	}
	e.ActionItems = items
	m.emails[id] = e
	return &e, nil
}

// keywordProcessor categorizes by subject so results are deterministic.
type keywordProcessor struct {
	failSubject string
}

func (p keywordProcessor) Process(_ context.Context, e model.Email) (processor.Result, error) {
	if p.failSubject != "" && e.Subject == p.failSubject {
		return processor.Result{}, errors.New("model unavailable")
	}
	cat := processor.ResolveCategory(e.Subject)
	return processor.Result{Category: cat, ActionItems: []model.ActionItem{{Task: "follow up"}}}, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

type heldLocker struct{ held bool }

func (l *heldLocker) AcquireOnce(context.Context, string) (func(), bool) {
	if l.held {
		return func() {}, false
	}
	l.held = true
	return func() { l.held = false }, true
}

func newTestService(store Store, proc processor.EmailProcessor, pub *recordingPublisher, locker Locker) *Service {
	batch := processor.NewBatchRunner(proc, processor.FixedIntervalGate{}, zap.NewNop())
	return NewService(store, proc, batch, pub, locker, zap.NewNop())
}

func TestLoadThenProcessAll(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, keywordProcessor{}, pub, &heldLocker{})
	ctx := context.Background()

	loaded, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) == 0 {
		t.Fatal("seed inbox is empty")
	}

	out, err := svc.ProcessAll(ctx)
	if err != nil {
		t.Fatalf("ProcessAll: %v", err)
	}
	if out.Count != len(loaded) || out.Failed != 0 {
		t.Errorf("outcome = %d ok / %d failed, want %d / 0", out.Count, out.Failed, len(loaded))
	}
	if out.Message != fmt.Sprintf("Processed %d emails successfully", len(loaded)) {
		t.Errorf("message = %q", out.Message)
	}

	all, _ := store.List(ctx, model.EmailFilter{})
	for _, e := range all {
		if !e.Processed {
			t.Errorf("%q not processed", e.Subject)
		}
		if !e.Category.Valid() {
			t.Errorf("%q has category %q", e.Subject, e.Category)
		}
	}

	again, err := svc.ProcessAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Message != "No unprocessed emails found" || again.Count != 0 || again.Emails == nil {
		t.Errorf("second run = %+v", again)
	}
}

func TestProcessAllCountsFailures(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, keywordProcessor{failSubject: "b"}, &recordingPublisher{}, nil)
	ctx := context.Background()
	now := time.Now()
	_, _ = store.ReplaceAll(ctx, []model.Email{
		{Subject: "a", Timestamp: now},
		{Subject: "b", Timestamp: now.Add(-time.Minute)},
		{Subject: "c", Timestamp: now.Add(-2 * time.Minute)},
	})

	out, err := svc.ProcessAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || out.Failed != 1 {
		t.Errorf("count/failed = %d/%d", out.Count, out.Failed)
	}
	if out.Message != "Processed 2 emails successfully, 1 failed" {
		t.Errorf("message = %q", out.Message)
	}
	pending, _ := store.List(ctx, model.EmailFilter{Processed: new(bool)})
	if len(pending) != 1 || pending[0].Subject != "b" {
		t.Errorf("pending = %+v", pending)
	}
}

func TestProcessAllConflictWhenLocked(t *testing.T) {
	svc := newTestService(newMemStore(), keywordProcessor{}, &recordingPublisher{}, &heldLocker{held: true})

	_, err := svc.ProcessAll(context.Background())
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConflictError, got %v", err)
	}
}

func TestProcessSingle(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, keywordProcessor{}, pub, nil)
	ctx := context.Background()
	seeded, _ := store.ReplaceAll(ctx, []model.Email{{Subject: "Important: budget"}})

	e, err := svc.Process(ctx, seeded[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Processed || e.Category != model.CategoryImportant {
		t.Errorf("email = %+v", e)
	}
	if len(pub.keys) != 1 || pub.keys[0] != contractmq.RoutingEmailProcessed {
		t.Errorf("events = %v", pub.keys)
	}

	_, err = svc.Process(ctx, uuid.New())
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("want NotFoundError, got %v", err)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, keywordProcessor{}, &recordingPublisher{err: errors.New("broker down")}, nil)
	ctx := context.Background()
	seeded, _ := store.ReplaceAll(ctx, []model.Email{{Subject: "x"}})

	if _, err := svc.Process(ctx, seeded[0].ID); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestToggleActionItemTwice(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, keywordProcessor{}, pub, nil)
	ctx := context.Background()
	seeded, _ := store.ReplaceAll(ctx, []model.Email{{Subject: "x", ActionItems: []model.ActionItem{{Task: "a"}}}})
	id := seeded[0].ID

	first, err := svc.ToggleActionItem(ctx, id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !first.ActionItems[0].Completed || first.ActionItems[0].CompletedAt == nil {
		t.Errorf("after first toggle: %+v", first.ActionItems[0])
	}
	second, err := svc.ToggleActionItem(ctx, id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if second.ActionItems[0].Completed || second.ActionItems[0].CompletedAt != nil {
		t.Errorf("after second toggle: %+v", second.ActionItems[0])
	}
	if strings.Join(pub.keys, ",") != "action_item.toggled,action_item.toggled" {
		t.Errorf("events = %v", pub.keys)
	}
}

func TestToggleActionItemInvalidIndexLeavesRecord(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, keywordProcessor{}, &recordingPublisher{}, nil)
	ctx := context.Background()
	seeded, _ := store.ReplaceAll(ctx, []model.Email{{Subject: "x", ActionItems: []model.ActionItem{{Task: "a"}}}})
	id := seeded[0].ID

	for _, idx := range []int{-1, 1} {
		_, err := svc.ToggleActionItem(ctx, id, idx)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("index %d: want ValidationError, got %v", idx, err)
		}
	}
	e, _ := store.FindByID(ctx, id)
	if e.ActionItems[0].Completed || e.ActionItems[0].CompletedAt != nil {
		t.Errorf("record mutated: %+v", e.ActionItems[0])
	}
}

// cancellingGate cancels the run while pacing, like a client disconnecting.
type cancellingGate struct{ cancel context.CancelFunc }

func (g cancellingGate) Wait(ctx context.Context) error {
	g.cancel()
	return ctx.Err()
}

// ctxStore rejects writes on a cancelled context, as pgx does.
type ctxStore struct{ *memStore }

func (s ctxStore) SaveProcessing(ctx context.Context, id uuid.UUID, c model.Category, items []model.ActionItem) (*model.Email, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.memStore.SaveProcessing(ctx, id, c, items)
}

func TestProcessAllKeepsResultsWhenCancelled(t *testing.T) {
	store := ctxStore{newMemStore()}
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	seed := make([]model.Email, 3)
	for i := range seed {
		seed[i] = model.Email{Sender: "a@b.c", Subject: fmt.Sprintf("Newsletter %d", i), Body: "x", Timestamp: base.Add(-time.Duration(i) * time.Hour)}
	}
	if _, err := store.ReplaceAll(context.Background(), seed); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc := keywordProcessor{}
	batch := processor.NewBatchRunner(proc, cancellingGate{cancel: cancel}, zap.NewNop())
	svc := NewService(store, proc, batch, &recordingPublisher{}, nil, zap.NewNop())

	out, err := svc.ProcessAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Failed != 2 {
		t.Fatalf("count = %d, failed = %d, want 1 and 2", out.Count, out.Failed)
	}

	yes := true
	done, _ := store.List(context.Background(), model.EmailFilter{Processed: &yes})
	if len(done) != 1 || done[0].Subject != "Newsletter 0" {
		t.Fatalf("processed = %+v, want the first email stored", done)
	}
	if done[0].Category != model.CategoryNewsletter {
		t.Errorf("category = %q", done[0].Category)
	}
}
