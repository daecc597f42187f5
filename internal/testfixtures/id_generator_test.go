package testfixtures

import "testing"

func TestIDGeneratorCountsPerPrefix(t *testing.T) {
	gen := NewIDGenerator("training")
	tokens := gen.Sequence("token")

	got := []string{gen.Next(), tokens(), gen.Next(), tokens()}
	want := []string{"training-1", "token-1", "training-2", "token-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("identifier %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	_ = gen.Sequence("hall")()
	gen.Reset()

	if next := gen.Next(); next != "id-1" {
		t.Fatalf("expected id-1 after reset, got %q", next)
	}
	if next := gen.Sequence("hall")(); next != "hall-1" {
		t.Fatalf("expected hall-1 after reset, got %q", next)
	}
}
