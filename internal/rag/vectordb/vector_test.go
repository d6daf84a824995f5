package vectordb

import "testing"

func TestCollectionKeyName(t *testing.T) {
	key := CollectionKey{UserID: "usr_ab12", Section: "sports"}
	if got := key.Name(); got != "usr_5fab12__sports" {
		t.Errorf("Name() = %q", got)
	}

	user, section := key.PathParts()
	if user != "usr_5fab12" || section != "sports" {
		t.Errorf("PathParts() = %q, %q", user, section)
	}
}

func TestSanitizeIsInjective(t *testing.T) {
	// IDs that collapse under a naive replace-with-underscore scheme
	// must map to distinct collections.
	pairs := [][2]string{
		{"a.b", "a_b"},
		{"a.b", "a b"},
		{"A", "a"},
		{"usr.1", "usr_1"},
	}
	for _, p := range pairs {
		left := CollectionKey{UserID: p[0], Section: "geo"}
		right := CollectionKey{UserID: p[1], Section: "geo"}
		if left.Name() == right.Name() {
			t.Errorf("user IDs %q and %q share collection %q", p[0], p[1], left.Name())
		}
	}
}

func TestManifestMatches(t *testing.T) {
	m := Manifest{EmbeddingMode: "openai", EmbeddingModel: "text-embedding-3-small", Dimension: 1536}
	if !m.Matches(m) {
		t.Error("manifest should match itself")
	}
	other := m
	other.Dimension = 768
	if m.Matches(other) {
		t.Error("different dimension must not match")
	}
}
