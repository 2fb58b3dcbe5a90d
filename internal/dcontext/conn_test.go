package dcontext

import (
	"context"
	"testing"
)

func TestWithConnectionID(t *testing.T) {
	ctx := WithConnectionID(context.Background(), "conn-1")
	if got := GetConnectionID(ctx); got != "conn-1" {
		t.Fatalf("GetConnectionID() = %q, want %q", got, "conn-1")
	}

	if got := GetConnectionID(context.Background()); got != "" {
		t.Fatalf("GetConnectionID() on bare context = %q, want empty", got)
	}
}

func TestWithStreamID(t *testing.T) {
	ctx := WithStreamID(context.Background(), 4)
	got, ok := GetStreamID(ctx)
	if !ok || got != 4 {
		t.Fatalf("GetStreamID() = (%v, %v), want (4, true)", got, ok)
	}

	if _, ok := GetStreamID(context.Background()); ok {
		t.Fatal("GetStreamID() on bare context returned ok=true")
	}
}
