package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/takutakahashi/storefront/pkg/utils"
)

const encryptedPrefix = "ENC:"

// fileData is the on-disk layout of a credentials file
type fileData struct {
	Access    string    `json:"accessToken,omitempty"`
	Refresh   string    `json:"refreshToken,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore implements file-based credential persistence.
// The file is read once on open; every write rewrites it atomically.
type FileStore struct {
	filePath string
	encrypt  bool
	key      []byte
	pair     Pair
	mu       sync.RWMutex
}

// NewFileStore creates a new file store instance, loading any existing credentials
func NewFileStore(filePath string, encrypt bool) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("credentials file path is required")
	}

	fs := &FileStore{
		filePath: filePath,
		encrypt:  encrypt,
	}
	if encrypt {
		fs.key = encryptionKey()
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	if err := fs.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load existing credentials: %w", err)
	}

	return fs, nil
}

// DefaultFilePath returns the credentials file location under the user config dir
func DefaultFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "storefront", "credentials.json")
}

// Get returns the stored pair
func (fs *FileStore) Get(_ context.Context) Pair {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.pair
}

// Set writes the provided fields and syncs to file
func (fs *FileStore) Set(_ context.Context, pair Pair) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := merge(fs.pair, pair)
	if err := fs.syncToFile(next); err != nil {
		return err
	}
	fs.pair = next
	return nil
}

// Clear removes both credentials and the backing file
func (fs *FileStore) Clear(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.pair = Pair{}
	if err := os.Remove(fs.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

// Close is a no-op; every write is already on disk
func (fs *FileStore) Close() error {
	return nil
}

// syncToFile writes pair to disk via a temp file and an atomic rename
func (fs *FileStore) syncToFile(pair Pair) error {
	data := fileData{UpdatedAt: time.Now()}

	var err error
	if data.Access, err = fs.sealValue(pair.Access); err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	if data.Refresh, err = fs.sealValue(pair.Refresh); err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	encoded, err := json.MarshalIndent(&data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := utils.AtomicWriteFile(fs.filePath, encoded, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// loadFromFile reads credentials from disk
func (fs *FileStore) loadFromFile() error {
	raw, err := os.ReadFile(fs.filePath)
	if err != nil {
		return err
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode credentials: %w", err)
	}

	fs.pair = Pair{
		Access:  fs.openValue(AccessSlot, data.Access),
		Refresh: fs.openValue(RefreshSlot, data.Refresh),
	}
	return nil
}

func (fs *FileStore) sealValue(value string) (string, error) {
	if !fs.encrypt || value == "" {
		return value, nil
	}
	sealed, err := encryptString(fs.key, value)
	if err != nil {
		return "", err
	}
	return encryptedPrefix + sealed, nil
}

// openValue decrypts a stored value. An unreadable slot is reported as empty.
func (fs *FileStore) openValue(slot, value string) string {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value
	}
	if fs.key == nil {
		fs.key = encryptionKey()
	}
	plain, err := decryptString(fs.key, strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		slog.Warn("failed to decrypt stored credential", "slot", slot, "file", fs.filePath, "error", err)
		return ""
	}
	return plain
}
