package groups

import "testing"

func TestSetHas(t *testing.T) {
	s := Set{100: struct{}{}, 200: struct{}{}}
	if !s.Has(100) {
		t.Error("Has(100) = false, want true")
	}
	if s.Has(300) {
		t.Error("Has(300) = true, want false")
	}
}

func TestStaticGroupsOf(t *testing.T) {
	p := Static{
		42: Set{100: struct{}{}},
	}

	got, err := p.GroupsOf(42)
	if err != nil {
		t.Fatalf("GroupsOf(42): %v", err)
	}
	if !got.Has(100) {
		t.Fatalf("GroupsOf(42) = %v, want membership in 100", got)
	}

	got, err = p.GroupsOf(999)
	if err != nil {
		t.Fatalf("GroupsOf(999): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("GroupsOf(unknown pid) = %v, want empty set", got)
	}
}
