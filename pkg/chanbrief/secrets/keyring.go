// Package secrets resolves credentials from the OS keyring (Linux:
// Secret Service, macOS: Keychain, Windows: Credential Manager) as a
// fallback behind environment variables, and backs the `secret` CLI
// commands. Keyring entries keep tokens out of .env files and YAML.
package secrets

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// keyringService is the service name used in the OS keyring.
const keyringService = "chanbrief"

// Known secret names.
const (
	KeyDiscordToken = "discord_token"
	KeyGeminiAPIKey = "gemini_api_key"
)

// Store saves a secret to the OS keyring.
func Store(name, value string) error {
	return keyring.Set(keyringService, name, value)
}

// Get retrieves a secret from the OS keyring. Returns empty string if
// not found or the keyring is unavailable.
func Get(name string) string {
	val, err := keyring.Get(keyringService, name)
	if err != nil {
		return ""
	}
	return val
}

// Delete removes a secret from the OS keyring.
func Delete(name string) error {
	return keyring.Delete(keyringService, name)
}

// Available checks whether the OS keyring is usable with a write+delete
// cycle on a throwaway key.
func Available() bool {
	const testKey = "__chanbrief_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// Resolve fills a secret from the keyring when the env/config value is
// empty. Returns the effective value.
func Resolve(current, name string, logger *slog.Logger) string {
	if current != "" {
		return current
	}
	if val := Get(name); val != "" {
		if logger != nil {
			logger.Debug("secret loaded from OS keyring", "name", name)
		}
		return val
	}
	return ""
}

// ReadHidden prompts for a secret without echoing when stdin is a
// terminal; otherwise it reads a single line from stdin.
func ReadHidden(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		value, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return string(value), nil
	}

	var value string
	if _, err := fmt.Fscanln(os.Stdin, &value); err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return value, nil
}
