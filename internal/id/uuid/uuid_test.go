package uuid

import (
	"errors"
	"strings"
	"testing"

	goUUID "github.com/google/uuid"
)

func TestGeneratorNewIDIsVersion7(t *testing.T) {
	t.Parallel()

	gen := New()
	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if first == second {
		t.Fatalf("expected unique run IDs, got %s twice", first)
	}
	parsed, err := goUUID.Parse(first)
	if err != nil {
		t.Fatalf("run ID is not a UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
	if second < first {
		t.Fatalf("expected run IDs to sort by creation, got %s before %s", second, first)
	}
}

func TestGeneratorNewIDError(t *testing.T) {
	t.Parallel()

	gen := &Generator{newV7: func() (goUUID.UUID, error) {
		return goUUID.Nil, errors.New("entropy exhausted")
	}}
	if _, err := gen.NewID(); err == nil || !strings.Contains(err.Error(), "generate run id") {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
}
