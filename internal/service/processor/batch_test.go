package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"commandmail/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// failAt fails the email at one index and succeeds elsewhere.
type failAt struct {
	index int
	seen  []uuid.UUID
	ids   []uuid.UUID
}

func (f *failAt) Process(_ context.Context, e model.Email) (Result, error) {
	f.seen = append(f.seen, e.ID)
	for i, id := range f.ids {
		if id == e.ID && i == f.index {
			return Result{}, errors.New("boom")
		}
	}
	return Result{Category: model.CategoryNewsletter, ActionItems: []model.ActionItem{}}, nil
}

type countingGate struct {
	waits int
	err   error
}

func (g *countingGate) Wait(context.Context) error {
	g.waits++
	return g.err
}

func makeEmails(n int) []model.Email {
	emails := make([]model.Email, n)
	for i := range emails {
		emails[i] = model.Email{ID: uuid.New(), Subject: "s"}
	}
	return emails
}

func ids(emails []model.Email) []uuid.UUID {
	out := make([]uuid.UUID, len(emails))
	for i, e := range emails {
		out[i] = e.ID
	}
	return out
}

func TestBatchFailureAtKeepsOrder(t *testing.T) {
	const n = 5
	for k := 0; k < n; k++ {
		emails := makeEmails(n)
		proc := &failAt{index: k, ids: ids(emails)}
		runner := NewBatchRunner(proc, &countingGate{}, zap.NewNop())

		results := runner.Run(context.Background(), emails)
		if len(results) != n {
			t.Fatalf("k=%d: len = %d, want %d", k, len(results), n)
		}
		for i, r := range results {
			if r.Email.ID != emails[i].ID {
				t.Errorf("k=%d: result %d out of order", k, i)
			}
			if wantOK := i != k; r.Success() != wantOK {
				t.Errorf("k=%d: result %d success = %v, want %v", k, i, r.Success(), wantOK)
			}
		}
	}
}

func TestBatchWaitsNMinusOneTimes(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7} {
		gate := &countingGate{}
		emails := makeEmails(n)
		runner := NewBatchRunner(&failAt{index: -1, ids: ids(emails)}, gate, zap.NewNop())

		runner.Run(context.Background(), emails)

		want := n - 1
		if n == 0 {
			want = 0
		}
		if gate.waits != want {
			t.Errorf("n=%d: waits = %d, want %d", n, gate.waits, want)
		}
	}
}

func TestBatchSkipsWaitAfterFailure(t *testing.T) {
	emails := makeEmails(3)
	gate := &countingGate{}
	runner := NewBatchRunner(&failAt{index: 0, ids: ids(emails)}, gate, zap.NewNop())

	runner.Run(context.Background(), emails)

	// Only item 1 (success, not last) waits.
	if gate.waits != 1 {
		t.Errorf("waits = %d, want 1", gate.waits)
	}
}

func TestBatchCancelledWaitFailsRemaining(t *testing.T) {
	emails := makeEmails(4)
	proc := &failAt{index: -1, ids: ids(emails)}
	gate := &countingGate{err: context.Canceled}
	runner := NewBatchRunner(proc, gate, zap.NewNop())

	results := runner.Run(context.Background(), emails)
	if len(results) != 4 {
		t.Fatalf("len = %d", len(results))
	}
	if !results[0].Success() {
		t.Error("first item should have succeeded")
	}
	for i := 1; i < 4; i++ {
		if !errors.Is(results[i].Err, context.Canceled) {
			t.Errorf("result %d err = %v", i, results[i].Err)
		}
	}
	if len(proc.seen) != 1 {
		t.Errorf("processor called %d times after cancel", len(proc.seen))
	}
}

func TestFixedIntervalGate(t *testing.T) {
	g := FixedIntervalGate{Delay: 20 * time.Millisecond}
	start := time.Now()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("returned before delay")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (FixedIntervalGate{Delay: time.Hour}).Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want Canceled, got %v", err)
	}
}

func TestTokenBucketGate(t *testing.T) {
	g := NewTokenBucketGate(1000, 1)
	for i := 0; i < 3; i++ {
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}

	slow := NewTokenBucketGate(0.001, 1)
	_ = slow.Wait(context.Background()) // drain the burst
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := slow.Wait(ctx); err == nil {
		t.Error("want error when the next token is far beyond the deadline")
	}
}

func TestNewGateSelectsPolicy(t *testing.T) {
	if _, ok := NewGate(time.Second, 0, 1).(FixedIntervalGate); !ok {
		t.Error("rate 0 should give FixedIntervalGate")
	}
	if _, ok := NewGate(time.Second, 2, 1).(*TokenBucketGate); !ok {
		t.Error("rate > 0 should give TokenBucketGate")
	}
}

func TestRunEachStoresBeforeWaiting(t *testing.T) {
	emails := makeEmails(3)
	proc := &failAt{index: 1, ids: ids(emails)}
	gate := &countingGate{}
	runner := NewBatchRunner(proc, gate, zap.NewNop())

	var stored []uuid.UUID
	var waitsAtStore []int
	results := runner.RunEach(context.Background(), emails, func(ctx context.Context, r BatchResult) error {
		if ctx.Err() != nil {
			t.Errorf("store got a cancelled context")
		}
		stored = append(stored, r.Email.ID)
		waitsAtStore = append(waitsAtStore, gate.waits)
		return nil
	})

	if len(stored) != 2 || stored[0] != emails[0].ID || stored[1] != emails[2].ID {
		t.Fatalf("stored = %v, want items 0 and 2", stored)
	}
	if waitsAtStore[0] != 0 {
		t.Errorf("item 0 stored after %d waits, want 0", waitsAtStore[0])
	}
	if results[1].Success() {
		t.Error("item 1 should fail")
	}
}

func TestRunEachStoreSurvivesCancellation(t *testing.T) {
	emails := makeEmails(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gate := &countingGate{}
	runner := NewBatchRunner(&failAt{index: -1}, gate, zap.NewNop())

	var stored int
	results := runner.RunEach(ctx, emails, func(sctx context.Context, r BatchResult) error {
		cancel()
		if err := sctx.Err(); err != nil {
			return err
		}
		stored++
		return nil
	})
	if stored != 3 {
		t.Errorf("stored = %d, want 3", stored)
	}
	for i, r := range results {
		if !r.Success() {
			t.Errorf("result %d failed: %v", i, r.Err)
		}
	}
}

func TestRunEachStoreErrorFailsItem(t *testing.T) {
	emails := makeEmails(2)
	gate := &countingGate{}
	runner := NewBatchRunner(&failAt{index: -1}, gate, zap.NewNop())

	storeErr := errors.New("write failed")
	results := runner.RunEach(context.Background(), emails, func(context.Context, BatchResult) error {
		return storeErr
	})
	for i, r := range results {
		if !errors.Is(r.Err, storeErr) {
			t.Errorf("result %d err = %v, want store error", i, r.Err)
		}
	}
	if gate.waits != 1 {
		t.Errorf("waits = %d, want 1 (pacing follows the model call)", gate.waits)
	}
}

func TestNewBatchRunnerDefaultsToOneSecond(t *testing.T) {
	runner := NewBatchRunner(&failAt{index: -1}, nil, zap.NewNop())
	g, ok := runner.gate.(FixedIntervalGate)
	if !ok || g.Delay != time.Second {
		t.Errorf("default gate = %#v, want FixedIntervalGate{Delay: 1s}", runner.gate)
	}
}
