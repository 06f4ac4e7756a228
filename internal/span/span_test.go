package span

import "testing"

func TestOrderTotal(t *testing.T) {
	a := Range(1, 0, 5)
	b := Range(1, 5, 10)
	c := Range(2, 0, 1)
	p := Prelude("built_in.add_int")

	if !None.Less(p) {
		t.Error("None should sort before Prelude")
	}
	if !p.Less(a) {
		t.Error("Prelude should sort before any Range")
	}
	if !a.Less(b) {
		t.Error("earlier start in same file should sort first")
	}
	if !b.Less(c) {
		t.Error("lower file id should sort first regardless of offsets")
	}
	if a.Less(a) {
		t.Error("Less must be irreflexive")
	}
}

func TestDerivationIgnoredByKey(t *testing.T) {
	a := Range(3, 1, 2)
	b := a.WithDerivation(DerivationPipeline)
	if a.Key() != b.Key() {
		t.Error("derivation kind must not affect span identity")
	}
	if a == b {
		t.Error("derivation kind should still be visible on the raw value")
	}
}

func TestJoinAcrossFiles(t *testing.T) {
	a := Range(1, 0, 3)
	b := Range(2, 0, 3)
	if Join(a, b) != a {
		t.Error("Join across files must return the left span unchanged")
	}
}

func TestFileMap(t *testing.T) {
	m := NewMap()
	id := m.AddFile("src/lib.sdg")
	if m.Name(id) != "src/lib.sdg" {
		t.Error("file map did not round-trip the registered name")
	}
	if m.Name(FileID(99)) != "" {
		t.Error("unknown file id should return empty name, not panic")
	}
}
