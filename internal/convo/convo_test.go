package convo

import (
	"context"
	"errors"
	"testing"
)

func TestNext_TopupFlow(t *testing.T) {
	steps := []struct {
		ev   Event
		want State
	}{
		{EventStartTopup, StateTopupSelectMethod},
		{EventChooseMethod, StateTopupEnterAmount},
		{EventEnterAmount, StateTopupEnterRef},
		{EventEnterRef, StateTopupDone},
	}
	cur := StateIdle
	for _, s := range steps {
		next, err := Next(cur, s.ev)
		if err != nil {
			t.Fatalf("%s in %s: %v", s.ev, cur, err)
		}
		if next != s.want {
			t.Fatalf("%s in %s: got %s, want %s", s.ev, cur, next, s.want)
		}
		cur = next
	}
}

func TestNext_OrderFlow(t *testing.T) {
	steps := []struct {
		ev   Event
		want State
	}{
		{EventStartOrder, StateOrderSelectProduct},
		{EventChooseProduct, StateOrderEnterQty},
		{EventEnterQty, StateOrderEnterTarget},
		{EventEnterTarget, StateOrderConfirm},
		{EventConfirm, StateOrderDone},
	}
	cur := StateIdle
	for _, s := range steps {
		next, err := Next(cur, s.ev)
		if err != nil {
			t.Fatalf("%s in %s: %v", s.ev, cur, err)
		}
		if next != s.want {
			t.Fatalf("%s in %s: got %s, want %s", s.ev, cur, next, s.want)
		}
		cur = next
	}
}

func TestNext_CancelFromEveryState(t *testing.T) {
	states := []State{
		StateIdle,
		StateTopupSelectMethod, StateTopupEnterAmount, StateTopupEnterRef, StateTopupDone,
		StateOrderSelectProduct, StateOrderEnterQty, StateOrderEnterTarget, StateOrderConfirm, StateOrderDone,
	}
	for _, st := range states {
		next, err := Next(st, EventCancel)
		if err != nil {
			t.Fatalf("cancel in %s: %v", st, err)
		}
		if next != StateIdle {
			t.Fatalf("cancel in %s: got %s, want idle", st, next)
		}
	}
}

func TestNext_UnknownEventRejected(t *testing.T) {
	if _, err := Next(StateIdle, EventConfirm); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := Next(StateTopupEnterAmount, EventChooseProduct); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApply_CarriesDataAcrossSteps(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Apply(ctx, 42, EventStartOrder, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Apply(ctx, 42, EventChooseProduct, map[string]string{"product_id": "p1"}); err != nil {
		t.Fatalf("choose: %v", err)
	}
	sess, err := svc.Apply(ctx, 42, EventEnterQty, map[string]string{"qty": "3"})
	if err != nil {
		t.Fatalf("qty: %v", err)
	}
	if sess.Data["product_id"] != "p1" || sess.Data["qty"] != "3" {
		t.Fatalf("data bag lost values: %v", sess.Data)
	}
}

func TestApply_CancelClearsSession(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, 42, EventStartTopup, map[string]string{"k": "v"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess, err := svc.Apply(ctx, 42, EventCancel, nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sess.State != StateIdle {
		t.Fatalf("expected idle after cancel, got %s", sess.State)
	}

	cur, err := svc.Current(ctx, 42)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.State != StateIdle || len(cur.Data) != 0 {
		t.Fatalf("session not cleared: %+v", cur)
	}
}

func TestApply_InvalidEventKeepsState(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Apply(ctx, 42, EventStartTopup, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Apply(ctx, 42, EventConfirm, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	cur, _ := svc.Current(ctx, 42)
	if cur.State != StateTopupSelectMethod {
		t.Fatalf("state must be unchanged, got %s", cur.State)
	}
}
