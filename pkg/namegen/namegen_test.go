package namegen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRandomLength(t *testing.T) {
	for _, length := range []uint{0, 1, 2, 12, 128} {
		g := Random(length, 0)
		name, err := g.Generate()
		if err != nil {
			t.Fatalf("cannot generate name of length %d: %v", length, err)
		}
		if uint(len(name)) != length {
			t.Errorf("Random(%d) -> %q has length %d", length, name, len(name))
		}
		for _, r := range name {
			if !strings.ContainsRune(Alphanumeric, r) {
				t.Errorf("Random(%d) -> %q contains non alphanumeric rune %q", length, name, r)
			}
		}
	}
}

func TestRandomGenerateN(t *testing.T) {
	g := Random(1, 3, WithAlphabet("xy"))
	name, err := g.GenerateN(40)
	if err != nil {
		t.Fatal(err)
	}
	if len(name) != 40 {
		t.Fatalf("GenerateN(40) -> %q", name)
	}
	if strings.Trim(name, "xy") != "" {
		t.Errorf("%q uses letters outside the alphabet", name)
	}
	if g.Length() != 1 || g.MaxAttemptsBeforeGrow() != 3 {
		t.Errorf("generator parameters changed: %s", g)
	}
}

func TestUUIDUnique(t *testing.T) {
	g := UUID()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		name, err := g.Generate()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := uuid.Parse(name); err != nil {
			t.Fatalf("%q is not a uuid: %v", name, err)
		}
		if _, ok := seen[name]; ok {
			t.Fatalf("duplicate uuid %q after %d calls", name, i)
		}
		seen[name] = struct{}{}
	}
}

func TestParseKind(t *testing.T) {
	for str, want := range map[string]Kind{"random": KindRandom, " UUID ": KindUUID} {
		k, err := ParseKind(str)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", str, err)
			continue
		}
		if k != want {
			t.Errorf("ParseKind(%q) -> %s != %s", str, k, want)
		}
	}
	if _, err := ParseKind("sequential"); err == nil {
		t.Error("ParseKind(sequential) should fail")
	}
}
