package domain

import (
	"encoding/json"
	"testing"
)

func TestOrderedSet_AddPreservesInsertionOrder(t *testing.T) {
	var s OrderedSet
	s.Add("b")
	s.Add("a")
	s.Add("c")
	s.Add("a") // duplicate, ignored

	items := s.Items()
	want := []string{"b", "a", "c"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, items)
		}
	}
}

func TestOrderedSet_AddReturnsWhetherNew(t *testing.T) {
	var s OrderedSet
	if !s.Add("a") {
		t.Fatal("expected first add of a to report true")
	}
	if s.Add("a") {
		t.Fatal("expected second add of a to report false")
	}
}

func TestOrderedSet_ZeroValueUsable(t *testing.T) {
	var s OrderedSet
	if s.Has("x") {
		t.Fatal("zero-value set should not contain anything")
	}
	if s.Len() != 0 {
		t.Fatalf("expected 0 length, got %d", s.Len())
	}
}

func TestOrderedSet_MergeAppendsNewcomersInOrder(t *testing.T) {
	var s OrderedSet
	s.Add("a")
	s.Add("b")

	var other OrderedSet
	other.Add("b")
	other.Add("c")
	other.Add("d")

	s.Merge(&other)

	items := s.Items()
	want := []string{"a", "b", "c", "d"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, items)
		}
	}
}

func TestOrderedSet_MergeNilIsNoop(t *testing.T) {
	var s OrderedSet
	s.Add("a")
	s.Merge(nil)
	if s.Len() != 1 {
		t.Fatalf("expected merge of nil to be a no-op, got len %d", s.Len())
	}
}

func TestOrderedSet_CloneIsIndependent(t *testing.T) {
	var s OrderedSet
	s.Add("a")
	clone := s.Clone()
	clone.Add("b")

	if s.Has("b") {
		t.Fatal("mutating the clone must not affect the original")
	}
	if !clone.Has("a") || !clone.Has("b") {
		t.Fatal("clone should contain both elements")
	}
}

func TestOrderedSet_JSONRoundTrip(t *testing.T) {
	var s OrderedSet
	s.Add("g")
	s.Add("h")
	s.Add("T")

	data, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["g","h","T"]` {
		t.Fatalf("expected a plain JSON array, got %s", data)
	}

	var out OrderedSet
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Len() != 3 || !out.Has("g") || !out.Has("h") || !out.Has("T") {
		t.Fatalf("round trip lost elements: %v", out.Items())
	}
	if got := out.Items(); got[0] != "g" || got[1] != "h" || got[2] != "T" {
		t.Fatalf("round trip lost insertion order: %v", got)
	}
}

func TestOrderedSet_EmptyMarshalsToEmptyArray(t *testing.T) {
	var s OrderedSet
	data, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}
