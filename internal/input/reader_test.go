package input

import (
	"io"
	"testing"
)

func TestStringReader(t *testing.T) {
	r := NewStringReader("first\n", "second\n")

	for _, want := range []string{"first\n", "second\n"} {
		got, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}

	if _, err := r.ReadString('\n'); err != io.EOF {
		t.Errorf("expected io.EOF after inputs exhausted, got %v", err)
	}
}

func TestSelection(t *testing.T) {
	t.Run("CommaSeparated", func(t *testing.T) {
		got, err := Selection(NewStringReader("1, 3\n"), 4)
		if err != nil {
			t.Fatalf("Selection failed: %v", err)
		}
		if len(got) != 2 || got[0] != 0 || got[1] != 2 {
			t.Errorf("expected [0 2], got %v", got)
		}
	})

	t.Run("All", func(t *testing.T) {
		got, err := Selection(NewStringReader("all\n"), 3)
		if err != nil {
			t.Fatalf("Selection failed: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 indexes, got %v", got)
		}
	})

	t.Run("EmptyMeansNone", func(t *testing.T) {
		got, err := Selection(NewStringReader("\n"), 3)
		if err != nil {
			t.Fatalf("Selection failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no indexes, got %v", got)
		}
	})

	t.Run("Duplicates", func(t *testing.T) {
		got, err := Selection(NewStringReader("2,2,1\n"), 3)
		if err != nil {
			t.Fatalf("Selection failed: %v", err)
		}
		if len(got) != 2 || got[0] != 1 || got[1] != 0 {
			t.Errorf("expected [1 0], got %v", got)
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		if _, err := Selection(NewStringReader("5\n"), 3); err == nil {
			t.Error("out-of-range selection should fail")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := Selection(NewStringReader("x\n"), 3); err == nil {
			t.Error("non-numeric selection should fail")
		}
	})
}
