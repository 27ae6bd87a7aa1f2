// Package keys resolves and stores the Gemini API credential.
package keys

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// Provider is the single credential slot this tool manages.
const Provider = "gemini"

// Environment variables checked for the key, in order.
var EnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Store handles API key storage and retrieval in keys.json under the
// platform config directory.
type Store struct {
	configDir string
}

type KeyEntry struct {
	Key string `json:"key"`
}

type Keys map[string]KeyEntry

func NewStore() (*Store, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: configDir}, nil
}

// getConfigDir returns the platform-specific config directory.
func getConfigDir() (string, error) {
	// Allow override for testing
	if testDir := os.Getenv("GEMIMG_CONFIG_DIR"); testDir != "" {
		return testDir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "gemimg"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "gemimg"), nil
	default: // linux and others
		// Follow XDG Base Directory Specification
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "gemimg"), nil
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (Keys, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(Keys), nil
		}
		return nil, err
	}

	var keys Keys
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	return keys, nil
}

func (s *Store) save(keys Keys) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

func (s *Store) Set(key string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	keys[Provider] = KeyEntry{Key: key}
	return s.save(keys)
}

func (s *Store) Get() (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}

	entry, ok := keys[Provider]
	if !ok {
		return "", nil // key not found, not an error
	}
	return entry.Key, nil
}

func (s *Store) Delete() error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[Provider]; !ok {
		return fmt.Errorf("no key stored for %s", Provider)
	}

	delete(keys, Provider)
	return s.save(keys)
}

// MaskKey returns a masked version of the key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Resolve retrieves the API key using the priority order:
//  1. Explicit key passed as argument (if non-empty)
//  2. Stored key in keys.json
//  3. Environment variables (GEMINI_API_KEY, then GOOGLE_API_KEY)
//  4. The prompt callback, when non-nil (interactive terminal entry)
//
// It returns the key and a human-readable description of its source.
func Resolve(explicitKey string, getenv func(string) string, prompt func() (string, error)) (string, string, error) {
	if explicitKey != "" {
		return explicitKey, "command-line flag", nil
	}

	store, err := NewStore()
	if err == nil {
		storedKey, err := store.Get()
		if err == nil && storedKey != "" {
			return storedKey, "stored key (keys.json)", nil
		}
	}

	for _, envVar := range EnvVars {
		if envKey := getenv(envVar); envKey != "" {
			return envKey, fmt.Sprintf("environment variable (%s)", envVar), nil
		}
	}

	if prompt != nil {
		key, err := prompt()
		if err != nil {
			return "", "", err
		}
		if key != "" {
			return key, "interactive prompt", nil
		}
	}

	return "", "", fmt.Errorf("API key required: run 'gemimg keys set' or set %s", EnvVars[0])
}

// PromptKey reads a key from in, masking the input when in is a
// terminal.
func PromptKey(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your Google API key: ")

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(scanner.Text()), nil
}
