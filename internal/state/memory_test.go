package state

import (
	"context"
	"errors"
	"testing"

	"github.com/ptreezh/stigmergy-CLI-Multi-Agents-sub003/pkg/models"
)

func TestMemoryStoreEmptyRead(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Read(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc := models.NewStateDocument("demo")
	if !s.Write(ctx, doc) {
		t.Fatal("Write failed")
	}

	// Mutating the written document after the fact must not change the store.
	doc.ProjectName = "mutated"

	got, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.ProjectName != "demo" {
		t.Errorf("write-side mutation leaked: %q", got.ProjectName)
	}

	// Same on the read side.
	got.ProjectName = "mutated again"
	again, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if again.ProjectName != "demo" {
		t.Errorf("read-side mutation leaked: %q", again.ProjectName)
	}
}

func TestMemoryStoreWriteDetectsConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if !s.Write(ctx, models.NewStateDocument("demo")) {
		t.Fatal("seed Write failed")
	}

	a, _ := s.Read(ctx)
	b, _ := s.Read(ctx)

	if !s.Write(ctx, a) {
		t.Fatal("first writer should win")
	}
	if s.Write(ctx, b) {
		t.Error("stale writer should lose the optimistic race")
	}
}

func TestMemoryStoreFailWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	doc := models.NewStateDocument("demo")

	s.FailWrites(2)
	if s.Write(ctx, doc) {
		t.Error("first write should have failed")
	}
	if s.Write(ctx, doc) {
		t.Error("second write should have failed")
	}
	if !s.Write(ctx, doc) {
		t.Error("third write should have succeeded")
	}
}
