// Package fileutil writes artifact files safely.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to dst through a temporary file in the same
// directory and renames it into place, so readers never observe a partial
// file. Parent directories are created as needed.
func WriteFileAtomic(dst string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	return os.Rename(tmpName, dst)
}

// WriteFileVerified writes data atomically and re-reads the result, checking
// size and SHA256. The destination is removed on mismatch. It returns the
// hex digest of the written bytes.
func WriteFileVerified(dst string, data []byte) (string, error) {
	if err := WriteFileAtomic(dst, data, 0o644); err != nil {
		return "", err
	}
	want := sha256.Sum256(data)

	in, err := os.Open(dst)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha256.New()
	written, err := io.Copy(hasher, in)
	if err != nil {
		return "", err
	}
	if written != int64(len(data)) {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write size mismatch: expected %d bytes, found %d bytes", len(data), written)
	}
	if !bytes.Equal(want[:], hasher.Sum(nil)) {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write hash mismatch: file corrupted on disk")
	}
	return hex.EncodeToString(want[:]), nil
}

// SHA256Hex returns the hex SHA256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
