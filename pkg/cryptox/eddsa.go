package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const pemTypePrivateKey = "PRIVATE KEY"

// GenerateEd25519Key returns a fresh Ed25519 private key as a PKCS8 PEM block.
func GenerateEd25519Key() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate ed25519 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal ed25519 key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der}), nil
}

// LoadOrCreateEd25519Key reads the PEM key stored at path. If the file does
// not exist a new key is generated and written there with mode 0600, creating
// the parent directory when needed. created reports whether the key is new.
func LoadOrCreateEd25519Key(path string) (pemKey []byte, created bool, err error) {
	pemKey, err = os.ReadFile(path)
	switch {
	case err == nil:
		return pemKey, false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, false, fmt.Errorf("cryptox: read key %s: %w", path, err)
	}

	pemKey, err = GenerateEd25519Key()
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, false, fmt.Errorf("cryptox: create key directory: %w", err)
	}
	if err := os.WriteFile(path, pemKey, 0o600); err != nil {
		return nil, false, fmt.Errorf("cryptox: write key %s: %w", path, err)
	}
	return pemKey, true, nil
}
