package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("GEMIMG_CONFIG_DIR", t.TempDir())
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStoreSetGetDelete(t *testing.T) {
	store := testStore(t)

	if key, err := store.Get(); err != nil || key != "" {
		t.Errorf("Get() on empty store = (%q, %v)", key, err)
	}

	if err := store.Set("sk-test-123"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	key, err := store.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "sk-test-123" {
		t.Errorf("Get() = %q, want %q", key, "sk-test-123")
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("keys.json permissions = %o, want 0600", perm)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(); err == nil {
		t.Error("Delete() on empty store expected error")
	}
}

func TestStoreCorruptFile(t *testing.T) {
	store := testStore(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte("{invalid json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(); err == nil {
		t.Error("Get() with corrupt keys.json expected error")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"AIzaSyExample1234", "AIza*********1234"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestResolvePriority(t *testing.T) {
	t.Setenv("GEMIMG_CONFIG_DIR", t.TempDir())

	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	// Nothing available anywhere: halt.
	if _, _, err := Resolve("", getenv, nil); err == nil {
		t.Error("Resolve() with no key anywhere expected error")
	}

	// Prompt is the last resort.
	key, source, err := Resolve("", getenv, func() (string, error) { return "prompted-key", nil })
	if err != nil || key != "prompted-key" || source != "interactive prompt" {
		t.Errorf("Resolve() = (%q, %q, %v), want prompted key", key, source, err)
	}

	// Environment beats the prompt; GEMINI_API_KEY beats GOOGLE_API_KEY.
	env["GOOGLE_API_KEY"] = "google-key"
	key, _, err = Resolve("", getenv, nil)
	if err != nil || key != "google-key" {
		t.Errorf("Resolve() = (%q, %v), want google-key", key, err)
	}
	env["GEMINI_API_KEY"] = "gemini-key"
	key, _, err = Resolve("", getenv, nil)
	if err != nil || key != "gemini-key" {
		t.Errorf("Resolve() = (%q, %v), want gemini-key", key, err)
	}

	// Stored key beats the environment.
	store, err := NewStore()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set("stored-key"); err != nil {
		t.Fatal(err)
	}
	key, source, err = Resolve("", getenv, nil)
	if err != nil || key != "stored-key" {
		t.Errorf("Resolve() = (%q, %q, %v), want stored-key", key, source, err)
	}

	// Explicit flag beats everything.
	key, source, err = Resolve("flag-key", getenv, nil)
	if err != nil || key != "flag-key" || source != "command-line flag" {
		t.Errorf("Resolve() = (%q, %q, %v), want flag-key", key, source, err)
	}
}

func TestPromptKeyNonTerminal(t *testing.T) {
	var out strings.Builder
	key, err := PromptKey(strings.NewReader("  typed-key \n"), &out)
	if err != nil {
		t.Fatalf("PromptKey() error = %v", err)
	}
	if key != "typed-key" {
		t.Errorf("PromptKey() = %q, want %q", key, "typed-key")
	}
	if !strings.Contains(out.String(), "API key") {
		t.Error("prompt text not written")
	}

	key, err = PromptKey(strings.NewReader(""), &out)
	if err != nil || key != "" {
		t.Errorf("PromptKey() on empty input = (%q, %v)", key, err)
	}
}
