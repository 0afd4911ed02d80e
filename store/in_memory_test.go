package store

import (
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/modepilot/core"
	"github.com/hupe1980/modepilot/internal/testutil"
)

func TestInMemoryExampleStore(t *testing.T) {
	s := NewInMemoryExampleStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		stored, err := s.Append(ctx, testutil.NewExampleBuilder().Summary("mem").Build())
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if stored.InteractionID != int64(i)+1 {
			t.Fatalf("expected id %d, got %d", i+1, stored.InteractionID)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].InteractionID != 4 {
		t.Fatalf("recent should be most recent first: %+v", recent)
	}

	window, err := s.Slice(ctx, 1, 3)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(window) != 2 || window[0].InteractionID != 2 {
		t.Fatalf("unexpected slice window: %+v", window)
	}

	if _, err := s.Slice(ctx, 0, 99); err == nil {
		t.Error("expected error for out-of-range slice")
	}
}

func TestInMemoryExampleStore_Concurrency(t *testing.T) {
	s := NewInMemoryExampleStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Append(ctx, testutil.NewExampleBuilder().Build()); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 50 {
		t.Fatalf("expected 50 examples, got %d", n)
	}
}

func TestInMemoryRuleStore(t *testing.T) {
	s := NewInMemoryRuleStore()
	ctx := context.Background()

	if err := s.Append(ctx,
		core.NewRule("first", core.Range{From: 1, To: 2}),
		core.NewRule("second", core.Range{From: 1, To: 2}),
		core.NewRule("third", core.Range{From: 3, To: 5}),
	); err != nil {
		t.Fatalf("append: %v", err)
	}

	active, err := s.Active(ctx, 2)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 2 || active[0].Text != "third" || active[1].Text != "second" {
		t.Fatalf("active should be newest first: %+v", active)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[0].Text != "first" {
		t.Fatalf("all should preserve append order: %+v", all)
	}
}
