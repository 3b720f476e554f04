package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// EncryptionKeyEnv names the environment variable holding the token encryption passphrase
const EncryptionKeyEnv = "STOREFRONT_ENCRYPTION_KEY"

// encryptionKey derives a 256-bit key from the configured passphrase
func encryptionKey() []byte {
	key := os.Getenv(EncryptionKeyEnv)
	if key == "" {
		slog.Warn("using default credentials encryption key", "env", EncryptionKeyEnv)
		key = "storefront-credentials-encryption-key"
	}

	hash := sha256.Sum256([]byte(key))
	return hash[:]
}

// encryptString seals text with AES-GCM and returns nonce||ciphertext in base64
func encryptString(key []byte, text string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(text), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decryptString reverses encryptString
func decryptString(key []byte, cryptoText string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(cryptoText)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
