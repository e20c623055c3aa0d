package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/token/event"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/types"
)

type recorder struct {
	name string

	mu    sync.Mutex
	calls []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(hook string) {
	r.mu.Lock()
	r.calls = append(r.calls, hook)
	r.mu.Unlock()
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) OnTransfer(context.Context, *event.Event) error { r.record("transfer"); return nil }
func (r *recorder) OnApproval(context.Context, *event.Event) error { r.record("approval"); return nil }
func (r *recorder) OnMint(context.Context, *event.Event) error     { r.record("mint"); return nil }
func (r *recorder) OnBurn(context.Context, *event.Event) error     { r.record("burn"); return nil }

func (r *recorder) OnRejected(context.Context, string, types.AccountID, types.Amount, error) error {
	r.record("rejected")
	return nil
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	time.Sleep(time.Second)
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := plugin.NewRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("got %d plugins, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Error("Get returned an unexpected plugin")
	}
}

func TestEmitEventRouting(t *testing.T) {
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}

	alice, bob := types.AccountID("alice"), types.AccountID("bob")
	ctx := t.Context()

	r.EmitEvent(ctx, event.NewTransfer(alice.Ptr(), bob.Ptr(), types.NewAmount(1)))
	r.EmitEvent(ctx, event.NewApproval(alice, bob, types.NewAmount(1)))
	r.EmitEvent(ctx, event.NewTransfer(nil, bob.Ptr(), types.NewAmount(1)))
	r.EmitEvent(ctx, event.NewTransfer(alice.Ptr(), nil, types.NewAmount(1)))
	r.EmitRejected(ctx, "transfer", alice, types.NewAmount(1), errors.New("no"))

	want := []string{"transfer", "approval", "mint", "burn", "rejected"}
	got := rec.got()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCallTimeout(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	if err := r.Register(slowPlugin{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitShutdown(t.Context())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("shutdown dispatch took %v, expected timeout to cut it short", elapsed)
	}
}
