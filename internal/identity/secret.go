package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const secretBytes = 32

// LoadOrCreateSecret returns the configured secret if set. Otherwise it
// reads the secret stored at path, generating and persisting one on first use.
func LoadOrCreateSecret(configured, path string) ([]byte, error) {
	if s := strings.TrimSpace(configured); s != "" {
		return []byte(s), nil
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if s := strings.TrimSpace(string(data)); s != "" {
			return []byte(s), nil
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secret dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write secret: %w", err)
	}
	return []byte(secret), nil
}
