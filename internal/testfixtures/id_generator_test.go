package testfixtures

import (
	"testing"

	"github.com/google/uuid"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("meeting")

	first := gen.Next()
	second := gen.Next()

	if first != "meeting-1" || second != "meeting-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); len(issued) != 2 || issued[1] != second {
		t.Fatalf("unexpected issued list %v", issued)
	}
}

func TestUUIDGeneratorIsDeterministic(t *testing.T) {
	a := NewUUIDGenerator("meeting")
	b := NewUUIDGenerator("meeting")

	first := a.Next()
	if first != b.Next() {
		t.Fatal("expected identical sequences for identical prefixes")
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a UUID, got %q: %v", first, err)
	}
	if first == a.Next() {
		t.Fatal("expected distinct identifiers within a sequence")
	}
}
