package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bifrost/internal/resource"
	"bifrost/internal/store"
)

func TestDebouncedWriteCollapsesBursts(t *testing.T) {
	s := store.New()
	s.Init("abcdeffffe123456")
	path := filepath.Join(t.TempDir(), "state.yaml")

	w := New(path, s).WithDebounceWindow(150 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	// Let Run take its initial snapshot before the first mutation, so the
	// added light counts as a change against it.
	time.Sleep(20 * time.Millisecond)

	rid := resource.ID(resource.RTypeLight, "burst-light")
	link := resource.NewLink(rid, resource.RTypeLight)
	if err := s.Add(link, resource.Light{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	_ = s.UpdateLight(rid, func(l *resource.Light) { l.On.On = true })
	time.Sleep(20 * time.Millisecond)
	_ = s.UpdateLight(rid, func(l *resource.Light) { l.On.On = false })

	time.Sleep(400 * time.Millisecond)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected state file to exist after debounce window: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty state file")
	}

	loaded := store.New()
	if err := loaded.Load(data); err != nil {
		t.Fatalf("load written state: %v", err)
	}
	got, err := store.Get[resource.Light](loaded, rid)
	if err != nil {
		t.Fatalf("get after load: %v", err)
	}
	if got.On.On {
		t.Fatal("expected final state (on=false) to be what was persisted")
	}
}
