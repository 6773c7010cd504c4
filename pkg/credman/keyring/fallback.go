package keyring

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	keyFileName = "users.key"
	keyFileMode = 0600
)

// FileKeyStore keeps the key hex-encoded in <config dir>/users.key, for
// systems without a keyring service (headless boxes, minimal containers).
type FileKeyStore struct {
	configDir string
}

var (
	fileRandRead = randRead
	fileReadFile = os.ReadFile
	fileRemove   = os.Remove
	fileRename   = os.Rename
	fileMkdirAll = os.MkdirAll
	fileTempFile = os.CreateTemp
)

func NewFileKeyStore(configDir string) *FileKeyStore {
	return &FileKeyStore{configDir: configDir}
}

func (f *FileKeyStore) keyPath() string {
	return filepath.Join(f.configDir, keyFileName)
}

// SetKey generates a key and writes it atomically, replacing any previous one.
func (f *FileKeyStore) SetKey() ([]byte, error) {
	if err := fileMkdirAll(f.configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := fileRandRead(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	tmpFile, err := fileTempFile(f.configDir, "."+keyFileName+".tmp.*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.WriteString(hex.EncodeToString(key)); err != nil {
		tmpFile.Close()
		fileRemove(tmpPath)
		return nil, fmt.Errorf("write key: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		fileRemove(tmpPath)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, keyFileMode); err != nil {
		fileRemove(tmpPath)
		return nil, fmt.Errorf("set permissions: %w", err)
	}
	if err := fileRename(tmpPath, f.keyPath()); err != nil {
		fileRemove(tmpPath)
		return nil, fmt.Errorf("rename key file: %w", err)
	}
	return key, nil
}

// GetKey reads the key file. A missing file yields an error satisfying
// os.IsNotExist.
func (f *FileKeyStore) GetKey() ([]byte, error) {
	data, err := fileReadFile(f.keyPath())
	if err != nil {
		return nil, err
	}
	return ParseHexKey(strings.TrimSpace(string(data)))
}

func (f *FileKeyStore) DeleteKey() error {
	return fileRemove(f.keyPath())
}
