package credstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/hive-corporation/pivotlink/internal/core/ports"
)

// Env reads secrets from environment variables. It is read-only: Set fails
// so a Prompt result never silently disappears with the process.
type Env struct {
	Prefix string // e.g. "PIVOTLINK_"
}

func (e Env) Get(key string) (string, bool) {
	value, ok := os.LookupEnv(e.Prefix + envKey(key))
	return value, ok && value != ""
}

func (e Env) Set(string, string) error {
	return errors.New("environment credential store is read-only")
}

func envKey(key string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	return mapped
}

// File keeps secrets in a JSON file under the user config dir, chmod 0600.
// It stands in for the OS keyring the integration used historically.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultPath returns the per-user credentials file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config dir: %w", err)
	}
	return filepath.Join(dir, "pivotlink", "credentials.json"), nil
}

func (f *File) Get(key string) (string, bool) {
	secrets, err := f.load()
	if err != nil {
		return "", false
	}
	value, ok := secrets[key]
	return value, ok && value != ""
}

func (f *File) Set(key, value string) error {
	secrets, err := f.load()
	if err != nil {
		return err
	}
	if secrets == nil {
		secrets = map[string]string{}
	}
	secrets[key] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}
	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	var secrets map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("credential file %s is corrupt: %w", f.path, err)
	}
	return secrets, nil
}

// Prompt returns the stored secret for key, or asks for it on the terminal
// (no echo) and persists it. With reset set, the stored value is ignored and
// re-asked.
func Prompt(store ports.CredentialStore, key, label string, reset bool) (string, error) {
	if !reset {
		if value, ok := store.Get(key); ok {
			return value, nil
		}
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	var secret string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		secret = string(raw)
	} else {
		// Piped stdin, e.g. in CI. Read one line with echo semantics moot.
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}

	if secret == "" {
		return "", errors.New("empty secret")
	}
	if err := store.Set(key, secret); err != nil {
		return "", err
	}
	return secret, nil
}
