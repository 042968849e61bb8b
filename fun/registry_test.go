package fun

import (
	"testing"
)

func TestDefaultLookup(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		safe bool
	}{
		{"+", KindBuiltin, true},
		{"floor", KindBuiltin, true},
		{"[", KindBuiltin, false},
		{"stop", KindBuiltin, false},
		{"quote", KindSpecial, false},
		{"&&", KindBuiltin, true},
		{"paste0", KindInternal, false},
	}
	r := Default()
	for _, tt := range tests {
		b, ok := r.Lookup(tt.name)
		if !ok {
			t.Errorf("Lookup(%q) failed", tt.name)
			continue
		}
		if b.Kind != tt.kind || b.Safe != tt.safe {
			t.Errorf("Lookup(%q) = %s safe=%v, want %s safe=%v", tt.name, b.Kind, b.Safe, tt.kind, tt.safe)
		}
	}
	if _, ok := r.Lookup("no.such.fun"); ok {
		t.Error("Lookup of an unknown name succeeded")
	}
}

func TestLookupKind(t *testing.T) {
	r := Default()
	if _, err := r.LookupKind("quote", KindSpecial); err != nil {
		t.Errorf("LookupKind(quote, special) = %v", err)
	}
	if _, err := r.LookupKind("quote", KindBuiltin); err == nil {
		t.Error("LookupKind(quote, builtin) should fail")
	}
	if _, err := r.LookupKind("nope", KindBuiltin); err == nil {
		t.Error("LookupKind(nope) should fail")
	}
}

func TestVariant(t *testing.T) {
	r := Default()
	tests := []struct {
		idx  int
		want string
	}{
		{0, "floor"},
		{2, "sqrt"},
		{len(math1Funs) - 1, "trigamma"},
	}
	for _, tt := range tests {
		b, err := r.Variant(Math1, tt.idx)
		if err != nil {
			t.Fatalf("Variant(%d) failed: %v", tt.idx, err)
		}
		if b.Name != tt.want {
			t.Errorf("Variant(%d) = %s, want %s", tt.idx, b.Name, tt.want)
		}
	}
	for _, idx := range []int{-1, len(math1Funs)} {
		if _, err := r.Variant(Math1, idx); err == nil {
			t.Errorf("Variant(%d) should fail", idx)
		}
	}
	if _, err := r.Variant("nope", 0); err == nil {
		t.Error("Variant of an unknown family should fail")
	}
}

func TestRegisterVariantsRequiresMembers(t *testing.T) {
	r := NewRegistry()
	r.Register(&Builtin{Name: "a"})
	if err := r.RegisterVariants("fam", []string{"a", "b"}); err == nil {
		t.Error("RegisterVariants with an unregistered member should fail")
	}
	if err := r.RegisterVariants("fam", []string{"a"}); err != nil {
		t.Errorf("RegisterVariants failed: %v", err)
	}
	if got := r.Names(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Names() = %v, want [a]", got)
	}
}
