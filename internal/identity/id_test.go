package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	t.Parallel()

	first := GenerateID()
	second := GenerateID()
	if first == second {
		t.Fatal("expected distinct identifiers")
	}
	parsed, err := uuid.Parse(first)
	if err != nil {
		t.Fatalf("GenerateID produced unparsable id %q: %v", first, err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7 uuid, got %d", parsed.Version())
	}
}
