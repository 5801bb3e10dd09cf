package models

import (
	"context"
	"testing"
	"time"
)

func TestCachedModel_HitSkipsProvider(t *testing.T) {
	inner := &stubModel{name: "inner", text: "resumen"}
	cached := NewCachedModel(inner, 16, time.Hour, "")

	for i := 0; i < 3; i++ {
		got, err := cached.Generate(context.Background(), "sys", "same content")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "resumen" {
			t.Fatalf("got %q, want resumen", got)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner model called %d times, want 1", inner.calls)
	}
}

func TestCachedModel_DistinctPromptsMiss(t *testing.T) {
	inner := &stubModel{name: "inner", text: "resumen"}
	cached := NewCachedModel(inner, 16, time.Hour, "")

	if _, err := cached.Generate(context.Background(), "sys", "uno"); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Generate(context.Background(), "sys", "dos"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner model called %d times, want 2", inner.calls)
	}
}
