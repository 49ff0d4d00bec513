package infra

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipguard/clipguard/internal/domain"
)

const (
	journalKeyFile = ".journal.key"
	journalKeyLen  = 32
)

// FileKeyProvider keeps the journal passphrase in a hidden hex file
// next to the journal, readable only by the owner. Losing the file
// loses the history, nothing else.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a provider rooted in dataDir.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, journalKeyFile)}
}

// GetKey reads and decodes the stored passphrase.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	raw, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	if len(key) != journalKeyLen {
		return nil, fmt.Errorf("key file holds %d bytes, want %d", len(key), journalKeyLen)
	}
	return key, nil
}

// StoreKey writes the passphrase with owner-only permissions.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != journalKeyLen {
		return fmt.Errorf("key is %d bytes, want %d", len(key), journalKeyLen)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	encoded := hex.EncodeToString(key) + "\n"
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// KeyExists reports whether a passphrase is stored.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// EnsureKey returns the stored passphrase, generating and storing a
// fresh random one on first use.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key := make([]byte, journalKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Ensure FileKeyProvider implements domain.KeyProvider.
var _ domain.KeyProvider = (*FileKeyProvider)(nil)
