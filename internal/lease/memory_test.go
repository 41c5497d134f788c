package lease

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_AcquireAndRelease(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "goal-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = s.Acquire(ctx, "goal-1", time.Minute)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if ok {
		t.Error("second Acquire should fail while lease is held")
	}

	held, err := s.Held(ctx, "goal-1")
	if err != nil || !held {
		t.Errorf("Held = (%v, %v), want (true, nil)", held, err)
	}

	if err := s.Release(ctx, "goal-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = s.Acquire(ctx, "goal-1", time.Minute)
	if err != nil || !ok {
		t.Errorf("Acquire after release = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	s.now = func() time.Time { return current }

	if ok, _ := s.Acquire(ctx, "goal-2", 30*time.Second); !ok {
		t.Fatal("initial acquire failed")
	}

	current = current.Add(10 * time.Second)
	if ok, _ := s.Acquire(ctx, "goal-2", 30*time.Second); ok {
		t.Error("acquire inside TTL should fail")
	}

	current = current.Add(30 * time.Second)
	if ok, _ := s.Acquire(ctx, "goal-2", 30*time.Second); !ok {
		t.Error("acquire after TTL expiry should succeed")
	}
}

func TestMemoryStore_IndependentKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if ok, _ := s.Acquire(ctx, "a", time.Minute); !ok {
		t.Fatal("acquire a failed")
	}
	if ok, _ := s.Acquire(ctx, "b", time.Minute); !ok {
		t.Error("acquire b should be independent of a")
	}

	held, _ := s.Held(ctx, "c")
	if held {
		t.Error("unacquired key should not be held")
	}
}
